package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

func TestStateCodecCarriesState(t *testing.T) {
	codec := NewStateCodec("secret", time.Hour)
	state := models.WorkflowState{
		ID:          "wf-1",
		Stage:       models.StageConfirmingChanges,
		RegionID:    testRegionID,
		RBAID:       testRBAID,
		ClubACPCode: testACPCode,
		Edits:       []models.EventEdit{{EventID: 101, RouteID: intPtr(13), DistanceOption: models.DistanceUseRoute}},
	}
	token, err := codec.Encode(state)
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, state.Stage, decoded.Stage)
	assert.Equal(t, state.RegionID, decoded.RegionID)
	require.Len(t, decoded.Edits, 1)
	assert.Equal(t, 13, decoded.Edits[0].SelectedRoute())
}

func TestStateCodecRejectsTamperedToken(t *testing.T) {
	codec := NewStateCodec("secret", time.Hour)
	token, err := codec.Encode(models.WorkflowState{ID: "wf-1", Stage: models.StageEditingRoutes})
	require.NoError(t, err)

	other, err := codec.Encode(models.WorkflowState{ID: "wf-1", Stage: models.StageConfirmingChanges})
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	require.Len(t, parts, 3)
	require.Len(t, otherParts, 3)
	_, err = codec.Decode(otherParts[0] + "." + otherParts[1] + "." + parts[2])
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = NewStateCodec("other", time.Hour).Decode(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestStateCodecRejectsExpiredToken(t *testing.T) {
	codec := NewStateCodec("secret", time.Minute)
	issued := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	token, err := codec.Encode(models.WorkflowState{ID: "wf-1", Stage: models.StageEditingRoutes})
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = codec.Decode(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
