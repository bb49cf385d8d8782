package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rusa-rba/route-assign/internal/models"
)

// EventRepository reads calendared events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, region_id, type, distance, event_date, results_submitted, route_id`

// ListByRegion returns every event of the region ordered by date.
func (r *EventRepository) ListByRegion(ctx context.Context, regionID int) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE region_id = $1 ORDER BY event_date, id`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, regionID); err != nil {
		return nil, fmt.Errorf("list events for region %d: %w", regionID, err)
	}
	return events, nil
}

// GetByID fetches one event. sql.ErrNoRows is returned unwrapped.
func (r *EventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}
