package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rusa-rba/route-assign/internal/models"
)

// SQLCalendarBackend commits route changes straight into the calendar database.
type SQLCalendarBackend struct {
	db *sqlx.DB
}

// NewSQLCalendarBackend constructs the backend.
func NewSQLCalendarBackend(db *sqlx.DB) *SQLCalendarBackend {
	return &SQLCalendarBackend{db: db}
}

// CommitChanges writes every event in one transaction. An event that is
// missing or already has results aborts the whole batch with an unsuccessful
// result; driver failures are returned as errors.
func (b *SQLCalendarBackend) CommitChanges(ctx context.Context, events []models.Event) (*models.BackendResult, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin calendar commit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE events SET route_id = $1, distance = $2
	WHERE id = $3 AND results_submitted = FALSE`
	for _, event := range events {
		res, err := tx.ExecContext(ctx, query, event.RouteID, event.Distance, event.ID)
		if err != nil {
			return nil, fmt.Errorf("update event %d: %w", event.ID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("check event %d update rows: %w", event.ID, err)
		}
		if rows == 0 {
			return &models.BackendResult{
				ErrorMessage: fmt.Sprintf("event %d does not exist or its results have already been submitted", event.ID),
			}, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit calendar changes: %w", err)
	}
	return &models.BackendResult{Success: true}, nil
}
