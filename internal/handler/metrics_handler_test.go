package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/models"
	"github.com/rusa-rba/route-assign/internal/service"
)

type pingStub struct{ err error }

func (p pingStub) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		pinger Pinger
		status int
	}{
		{nil, http.StatusOK},
		{pingStub{}, http.StatusOK},
		{pingStub{err: errors.New("down")}, http.StatusServiceUnavailable},
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
		NewMetricsHandler(nil, tc.pinger).Health(c)
		assert.Equal(t, tc.status, w.Code)
	}
}

func TestMetricsHandlerExposesWorkflowCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveTransition(models.StageEditingRoutes, models.StageConfirmingChanges, service.OutcomeAdvanced)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(metrics, nil).Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `workflow_transitions_total{from="EDITING_ROUTES",outcome="advanced",to="CONFIRMING_CHANGES"} 1`))
}
