package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

func TestRouteServiceEligibleForDistance(t *testing.T) {
	routes := &routeStub{routes: testRoutes()}
	svc := NewRouteService(&regionStub{regions: []models.Region{testRegion()}}, routes, nil)

	resp, err := svc.EligibleForDistance(context.Background(), testRegionID, 300)
	require.NoError(t, err)
	assert.Equal(t, 300.0, resp.MinimumDistance)
	assert.Equal(t, 300.0, routes.minSeen)
	require.Len(t, resp.Routes, 3)
	assert.Equal(t, "13: Healdsburg (320km)", resp.Routes[0].Label)
}

func TestRouteServiceRejectsBadInput(t *testing.T) {
	svc := NewRouteService(&regionStub{regions: []models.Region{testRegion()}}, &routeStub{}, nil)

	_, err := svc.EligibleForDistance(context.Background(), testRegionID, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.EligibleForDistance(context.Background(), 42, 200)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
