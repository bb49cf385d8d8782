package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rusa-rba/route-assign/internal/models"
)

// RouteRepository reads the approved routes of a region. Inactive routes are
// never returned.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository constructs the repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `id, region_id, active, distance, name`

// ListByRegion returns the active routes of a region, shortest first.
func (r *RouteRepository) ListByRegion(ctx context.Context, regionID int) ([]models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE region_id = $1 AND active = TRUE ORDER BY distance, id`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query, regionID); err != nil {
		return nil, fmt.Errorf("list routes for region %d: %w", regionID, err)
	}
	return routes, nil
}

// ListByMinDistance returns the active routes of a region at least minDistance long.
func (r *RouteRepository) ListByMinDistance(ctx context.Context, regionID int, minDistance float64) ([]models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
	WHERE region_id = $1 AND active = TRUE AND distance >= $2
	ORDER BY distance, id`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query, regionID, minDistance); err != nil {
		return nil, fmt.Errorf("list routes for region %d from %.1fkm: %w", regionID, minDistance, err)
	}
	return routes, nil
}
