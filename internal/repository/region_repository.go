package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rusa-rba/route-assign/internal/models"
)

// RegionRepository reads calendar regions.
type RegionRepository struct {
	db *sqlx.DB
}

// NewRegionRepository constructs the repository.
func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

const regionColumns = `id, state, city, org_club, rba_id, active`

// ListActive returns regions flagged active.
func (r *RegionRepository) ListActive(ctx context.Context) ([]models.Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE active = TRUE ORDER BY state, city`
	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, query); err != nil {
		return nil, fmt.Errorf("list active regions: %w", err)
	}
	return regions, nil
}

// GetByID fetches a region. sql.ErrNoRows is returned unwrapped.
func (r *RegionRepository) GetByID(ctx context.Context, id int) (*models.Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE id = $1`
	var region models.Region
	if err := r.db.GetContext(ctx, &region, query, id); err != nil {
		return nil, err
	}
	return &region, nil
}
