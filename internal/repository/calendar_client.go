package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rusa-rba/route-assign/internal/models"
)

// HTTPCalendarBackend posts route changes to the calendar API.
type HTTPCalendarBackend struct {
	url    string
	client *http.Client
}

// NewHTTPCalendarBackend constructs the backend. A nil client gets the timeout.
func NewHTTPCalendarBackend(url string, timeout time.Duration, client *http.Client) *HTTPCalendarBackend {
	if client == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPCalendarBackend{url: url, client: client}
}

type calendarEventPayload struct {
	ID       int     `json:"eid"`
	Route    string  `json:"rtid"`
	Distance float64 `json:"dist"`
}

type calendarPutRequest struct {
	Events []calendarEventPayload `json:"events"`
}

type calendarPutResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CommitChanges PUTs the batch. The API encodes an unassigned route as "TBD".
func (b *HTTPCalendarBackend) CommitChanges(ctx context.Context, events []models.Event) (*models.BackendResult, error) {
	if b.url == "" {
		return nil, fmt.Errorf("calendar API URL not configured")
	}
	payload := calendarPutRequest{Events: make([]calendarEventPayload, 0, len(events))}
	for _, event := range events {
		route := "TBD"
		if event.RouteID != nil {
			route = strconv.Itoa(*event.RouteID)
		}
		payload.Events = append(payload.Events, calendarEventPayload{ID: event.ID, Route: route, Distance: event.Distance})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal calendar payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read calendar response: %w", err)
	}
	var decoded calendarPutResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("calendar API returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	result := &models.BackendResult{Success: decoded.Success && resp.StatusCode < http.StatusMultipleChoices}
	if !result.Success {
		result.ErrorMessage = fmt.Sprintf("status %d", resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			result.ErrorMessage = decoded.Error.Message
		}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
