package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

type regionReader interface {
	ListActive(ctx context.Context) ([]models.Region, error)
	GetByID(ctx context.Context, id int) (*models.Region, error)
}

type eventReader interface {
	ListByRegion(ctx context.Context, regionID int) ([]models.Event, error)
}

type routeReader interface {
	ListByRegion(ctx context.Context, regionID int) ([]models.Route, error)
	ListByMinDistance(ctx context.Context, regionID int, minDistance float64) ([]models.Route, error)
}

// RouteService answers route eligibility lookups outside the workflow.
type RouteService struct {
	regions regionReader
	routes  routeReader
	logger  *zap.Logger
}

// NewRouteService constructs the service.
func NewRouteService(regions regionReader, routes routeReader, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{regions: regions, routes: routes, logger: logger}
}

// EligibleForDistance lists the routes of a region an event of the given
// distance may use. The repository narrows by the lower bound and the pure
// filter has the final say.
func (s *RouteService) EligibleForDistance(ctx context.Context, regionID int, distance float64) (*dto.EligibleRoutesResponse, error) {
	if distance <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "distance must be positive")
	}
	region, err := loadActiveRegion(ctx, s.regions, regionID)
	if err != nil {
		return nil, err
	}
	minimum := EligibleMinimum(distance)
	candidates, err := s.routes.ListByMinDistance(ctx, region.ID, minimum)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routes")
	}
	eligible := EligibleRoutes(candidates, region.ID, distance)
	resp := &dto.EligibleRoutesResponse{
		RegionID:        region.ID,
		EventDistance:   distance,
		MinimumDistance: minimum,
		Routes:          make([]dto.RouteOption, 0, len(eligible)),
	}
	for _, r := range eligible {
		resp.Routes = append(resp.Routes, dto.RouteOption{ID: r.ID, Label: r.Label()})
	}
	return resp, nil
}

func loadActiveRegion(ctx context.Context, regions regionReader, id int) (*models.Region, error) {
	region, err := regions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("region %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load region")
	}
	if !region.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("region %d is not active", id))
	}
	return region, nil
}
