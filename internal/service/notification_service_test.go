package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/models"
	"github.com/rusa-rba/route-assign/pkg/jobs"
	"github.com/rusa-rba/route-assign/pkg/mailer"
)

type senderRecorder struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (s *senderRecorder) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func testNotification() models.Notification {
	return models.Notification{
		RegionName: "CA: San Francisco",
		RBAID:      testRBAID,
		RBAName:    "Rob Hawks",
		Recipients: []string{"rba@sfrandonneurs.org", "calendar@rusa.org"},
		Events: []models.NotificationEvent{
			{EventID: 101, Date: day(time.March, 1), Route: "13: Healdsburg (320km)", Distance: 300},
		},
	}
}

func TestMailNotifierBuildsMessageWithAttachments(t *testing.T) {
	sender := &senderRecorder{}
	notifier := NewMailNotifier(sender, "noreply@rusa.org", nil)

	require.NoError(t, notifier.Notify(context.Background(), testNotification()))
	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, "noreply@rusa.org", msg.From)
	assert.Equal(t, []string{"rba@sfrandonneurs.org", "calendar@rusa.org"}, msg.To)
	assert.Contains(t, msg.Subject, "CA: San Francisco")
	assert.Contains(t, msg.Body, "2026-03-01  event 101  300km  13: Healdsburg (320km)")
	assert.Contains(t, msg.Body, "Rob Hawks (RUSA #1234)")

	require.Len(t, msg.Attachments, 2)
	assert.True(t, strings.HasSuffix(msg.Attachments[0].Name, ".csv"))
	assert.Contains(t, string(msg.Attachments[0].Data), "101,2026-03-01,13: Healdsburg (320km),300")
	assert.Equal(t, "application/pdf", msg.Attachments[1].ContentType)
	assert.True(t, bytes.HasPrefix(msg.Attachments[1].Data, []byte("%PDF")))
}

func TestMailNotifierRequiresRecipients(t *testing.T) {
	note := testNotification()
	note.Recipients = nil
	err := NewMailNotifier(&senderRecorder{}, "noreply@rusa.org", nil).Notify(context.Background(), note)
	assert.Error(t, err)
}

func TestQueuedNotifierDeliversInBackground(t *testing.T) {
	delivered := make(chan models.Notification, 1)
	inner := NotifierFunc(func(ctx context.Context, n models.Notification) error {
		delivered <- n
		return nil
	})
	queued := NewQueuedNotifier(inner, jobs.QueueConfig{Workers: 1})
	queued.Start(context.Background())
	defer queued.Stop()

	require.NoError(t, queued.Notify(context.Background(), testNotification()))
	select {
	case n := <-delivered:
		assert.Equal(t, "CA: San Francisco", n.RegionName)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestQueuedNotifierRetriesThenGivesUp(t *testing.T) {
	gaveUp := make(chan error, 1)
	attempts := 0
	var mu sync.Mutex
	inner := NotifierFunc(func(ctx context.Context, n models.Notification) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("relay down")
	})
	queued := NewQueuedNotifier(inner, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
		OnGiveUp:   func(jobID string, err error) { gaveUp <- err },
	})
	queued.Start(context.Background())
	defer queued.Stop()

	require.NoError(t, queued.Notify(context.Background(), testNotification()))
	select {
	case err := <-gaveUp:
		assert.EqualError(t, err, "relay down")
	case <-time.After(2 * time.Second):
		t.Fatal("queue never gave up")
	}
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestQueuedNotifierReportsHandOffFailure(t *testing.T) {
	queued := NewQueuedNotifier(NotifierFunc(func(context.Context, models.Notification) error { return nil }), jobs.QueueConfig{})
	err := queued.Notify(context.Background(), testNotification())
	assert.Error(t, err)
}
