package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

type workflowFixture struct {
	svc       *WorkflowService
	regions   *regionStub
	events    *eventStub
	directory *directoryStub
	backend   *backendRecorder
	notifier  *notifierRecorder
	audit     *auditRecorder
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		regions: &regionStub{regions: []models.Region{
			testRegion(),
			{ID: 3, State: "AZ", City: "Phoenix", OrgClub: "903001", RBAID: 55, Active: true},
			{ID: 4, State: "AK", City: "Anchorage", OrgClub: "902001", RBAID: 56, Active: false},
		}},
		events:    &eventStub{events: testEvents()},
		directory: newDirectoryStub(),
		backend:   &backendRecorder{},
		notifier:  &notifierRecorder{},
		audit:     &auditRecorder{},
	}
	submissions := NewSubmissionService(f.backend, nil,
		WithNotifier(f.notifier),
		WithAuditLogger(f.audit),
		WithOpsMailbox("calendar@rusa.org"),
	)
	fixed := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	f.svc = NewWorkflowService(f.regions, f.events, &routeStub{routes: testRoutes()}, f.directory, submissions, nil, nil,
		WithClock(func() time.Time { return fixed }),
	)
	return f
}

func (f *workflowFixture) editing(t *testing.T) models.WorkflowState {
	t.Helper()
	start, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	res, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{
		Action: models.ActionSubmit,
		Region: dto.RegionSelection{RegionID: testRegionID, MemberID: testRBAID, ACPCode: testACPCode},
	})
	require.NoError(t, err)
	require.Nil(t, res.Rejection)
	require.Equal(t, models.StageEditingRoutes, res.State.Stage)
	return res.State
}

func (f *workflowFixture) confirming(t *testing.T, rows ...models.EventEdit) models.WorkflowState {
	t.Helper()
	res, err := f.svc.Transition(context.Background(), f.editing(t), dto.TransitionInput{Action: models.ActionSubmit, Rows: rows})
	require.NoError(t, err)
	require.Nil(t, res.Rejection)
	require.Equal(t, models.StageConfirmingChanges, res.State.Stage)
	return res.State
}

func findRow(t *testing.T, view dto.WorkflowView, eventID int) dto.EventRow {
	t.Helper()
	for _, row := range view.Events {
		if row.EventID == eventID {
			return row
		}
	}
	t.Fatalf("event %d not in view", eventID)
	return dto.EventRow{}
}

func TestWorkflowStartListsActiveRegionsSorted(t *testing.T) {
	f := newWorkflowFixture(t)
	res, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.State.ID)
	assert.Equal(t, models.StageAwaitingRegionSelection, res.State.Stage)
	require.Len(t, res.View.Regions, 2)
	assert.Equal(t, "AZ Phoenix", res.View.Regions[0].Label)
	assert.Equal(t, "CA San Francisco", res.View.Regions[1].Label)
	assert.Equal(t, []string{"regionId", "memberId", "acpCode"}, res.View.Fields)
}

func TestWorkflowIdentityMismatchReportsBothFields(t *testing.T) {
	f := newWorkflowFixture(t)
	start, _ := f.svc.Start(context.Background())
	res, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{
		Action: models.ActionSubmit,
		Region: dto.RegionSelection{RegionID: testRegionID, MemberID: 42, ACPCode: "111111"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, appErrors.ErrIdentityMismatch.Code, res.Rejection.Code)
	require.Len(t, res.Rejection.Details, 2)
	assert.Equal(t, models.StageAwaitingRegionSelection, res.State.Stage)
	assert.Zero(t, res.State.RegionID)
	assert.NotEmpty(t, res.View.Regions)
}

func TestWorkflowIdentitySingleMismatch(t *testing.T) {
	f := newWorkflowFixture(t)
	start, _ := f.svc.Start(context.Background())
	res, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{
		Action: models.ActionSubmit,
		Region: dto.RegionSelection{RegionID: testRegionID, MemberID: testRBAID, ACPCode: "111111"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	require.Len(t, res.Rejection.Details, 1)
	assert.Equal(t, "acpCode", res.Rejection.Details[0].Field)
}

func TestWorkflowUnknownOrInactiveRegionIsFatal(t *testing.T) {
	f := newWorkflowFixture(t)
	start, _ := f.svc.Start(context.Background())
	for _, id := range []int{99, 4} {
		_, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{
			Action: models.ActionSubmit,
			Region: dto.RegionSelection{RegionID: id, MemberID: 56, ACPCode: "902001"},
		})
		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	}
}

func TestWorkflowSelectionFieldValidation(t *testing.T) {
	f := newWorkflowFixture(t)
	start, _ := f.svc.Start(context.Background())
	res, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{Action: models.ActionSubmit})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, appErrors.ErrValidation.Code, res.Rejection.Code)
	assert.Len(t, res.Rejection.Details, 3)
}

func TestWorkflowEditingViewRows(t *testing.T) {
	f := newWorkflowFixture(t)
	start, _ := f.svc.Start(context.Background())
	res, err := f.svc.Transition(context.Background(), start.State, dto.TransitionInput{
		Action: models.ActionSubmit,
		Region: dto.RegionSelection{RegionID: testRegionID, MemberID: testRBAID, ACPCode: testACPCode},
	})
	require.NoError(t, err)

	view := res.View
	require.NotNil(t, view.Region)
	assert.Equal(t, "CA San Francisco", view.Region.RegionName)
	assert.Equal(t, "San Francisco Randonneurs", view.Region.ClubName)
	assert.Equal(t, "Rob Hawks", view.Region.RBAName)
	assert.Equal(t, testRBAID, res.State.RBAID)
	assert.Equal(t, testACPCode, res.State.ClubACPCode)

	ids := make([]int, 0, len(view.Events))
	for _, row := range view.Events {
		ids = append(ids, row.EventID)
	}
	assert.Equal(t, []int{106, 103, 101, 102, 105}, ids)

	unassigned := findRow(t, view, 101)
	assert.True(t, unassigned.Editable)
	assert.Equal(t, LabelSelectRoute, unassigned.EmptyOptionLabel)
	assert.True(t, unassigned.ShowDistanceOption)
	require.Len(t, unassigned.RouteOptions, 3)
	assert.Equal(t, "13: Healdsburg (320km)", unassigned.RouteOptions[0].Label)

	assigned := findRow(t, view, 106)
	assert.Equal(t, LabelUnassignRoute, assigned.EmptyOptionLabel)
	assert.Equal(t, 11, assigned.SelectedRouteID)
	assert.False(t, assigned.ShowDistanceOption)

	locked := findRow(t, view, 103)
	assert.False(t, locked.Editable)
	assert.True(t, locked.Locked)
	assert.Equal(t, "11: Point Reyes (205km)", locked.RouteLine)

	noRoutes := findRow(t, view, 105)
	assert.False(t, noRoutes.Editable)
	assert.Equal(t, LabelNoRoutesAvailable, noRoutes.RouteLine)
}

func TestWorkflowFullScenarioCommitsAndNotifies(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(13)})

	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionSubmit})
	require.NoError(t, err)
	require.Nil(t, res.Rejection)
	assert.Equal(t, models.StageFinished, res.State.Stage)
	assert.Empty(t, res.State.Edits)
	assert.Equal(t, []string{MessageSaved, MessageNotificationSent}, res.View.Messages)

	require.Len(t, f.backend.batches, 1)
	require.Len(t, f.backend.batches[0], 1)
	committed := f.backend.batches[0][0]
	assert.Equal(t, 101, committed.ID)
	assert.Equal(t, 13, committed.CurrentRouteID())
	assert.Equal(t, 300.0, committed.Distance)

	require.Len(t, f.notifier.sent, 1)
	note := f.notifier.sent[0]
	assert.Equal(t, "CA: San Francisco", note.RegionName)
	assert.Equal(t, testRBAID, note.RBAID)
	assert.Equal(t, "Rob Hawks", note.RBAName)
	assert.Equal(t, []string{"rba@sfrandonneurs.org", "calendar@rusa.org"}, note.Recipients)
	require.Len(t, note.Events, 1)
	assert.Equal(t, "13: Healdsburg (320km)", note.Events[0].Route)
	assert.Equal(t, 300.0, note.Events[0].Distance)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionRouteCommit, f.audit.logs[0].Action)

	_, err = f.svc.Transition(context.Background(), res.State, dto.TransitionInput{Action: models.ActionSubmit})
	assert.ErrorIs(t, err, appErrors.ErrWorkflowClosed)
}

func TestWorkflowDistanceIncompatibleKeepsEdits(t *testing.T) {
	f := newWorkflowFixture(t)
	rows := []models.EventEdit{{EventID: 102, RouteID: intPtr(14)}, {EventID: 101, RouteID: intPtr(15)}}
	res, err := f.svc.Transition(context.Background(), f.editing(t), dto.TransitionInput{Action: models.ActionSubmit, Rows: rows})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, appErrors.ErrDistanceIncompatible.Code, res.Rejection.Code)
	assert.Equal(t, models.StageEditingRoutes, res.State.Stage)
	assert.Equal(t, rows, res.State.Edits)
	assert.Equal(t, 15, findRow(t, res.View, 101).SelectedRouteID)
	assert.Empty(t, f.backend.batches)
}

func TestWorkflowUseRouteDistanceShowsOverrideInRecap(t *testing.T) {
	f := newWorkflowFixture(t)
	res, err := f.svc.Transition(context.Background(), f.editing(t), dto.TransitionInput{
		Action: models.ActionSubmit,
		Rows:   []models.EventEdit{{EventID: 102, RouteID: intPtr(14), DistanceOption: models.DistanceUseRoute}},
	})
	require.NoError(t, err)
	require.Nil(t, res.Rejection)
	row := findRow(t, res.View, 102)
	assert.True(t, row.Changed)
	assert.Equal(t, 390.0, row.Distance)
	assert.Equal(t, "14: Sonoma Loop (390km)", row.RouteLine)
	assert.False(t, findRow(t, res.View, 101).Changed)
}

func TestWorkflowNoChangesSubmitted(t *testing.T) {
	f := newWorkflowFixture(t)
	res, err := f.svc.Transition(context.Background(), f.editing(t), dto.TransitionInput{
		Action: models.ActionSubmit,
		Rows:   []models.EventEdit{{EventID: 106, RouteID: intPtr(11)}},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, appErrors.ErrNoChangesSubmitted.Code, res.Rejection.Code)
	assert.Equal(t, models.StageEditingRoutes, res.State.Stage)
}

func TestWorkflowBackFromConfirmingSeedsEdits(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(14)})

	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionBack})
	require.NoError(t, err)
	assert.Equal(t, models.StageEditingRoutes, res.State.Stage)
	assert.Equal(t, state.Edits, res.State.Edits)
	assert.Equal(t, 14, findRow(t, res.View, 101).SelectedRouteID)
	assert.Empty(t, f.backend.batches)
}

func TestWorkflowCancel(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(13)})

	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, models.StageConfirmingChanges, res.State.Stage)
	assert.Contains(t, res.View.Messages, MessageCancelUnconfirm)

	res, err = f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionCancel, CancelConfirmed: true})
	require.NoError(t, err)
	assert.Equal(t, models.StageAborted, res.State.Stage)
	assert.Empty(t, res.State.Edits)
	assert.Empty(t, f.backend.batches)

	_, err = f.svc.Transition(context.Background(), res.State, dto.TransitionInput{Action: models.ActionBack})
	assert.ErrorIs(t, err, appErrors.ErrWorkflowClosed)
}

func TestWorkflowBackendFailureStaysOnConfirmation(t *testing.T) {
	f := newWorkflowFixture(t)
	f.backend.result = &models.BackendResult{ErrorMessage: "event 101 is locked"}
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(13)})

	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionSubmit})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, appErrors.ErrBackendCommitFailed.Code, res.Rejection.Code)
	require.Len(t, res.Rejection.Details, 1)
	assert.Equal(t, "The server returned an error when posting your changes. The message is: event 101 is locked", res.Rejection.Details[0].Message)
	assert.Equal(t, models.StageConfirmingChanges, res.State.Stage)
	assert.Equal(t, state.Edits, res.State.Edits)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.audit.logs)
}

func TestWorkflowConfirmRechecksPersistedData(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(13)})

	// Results arrive for the event between recap and confirmation.
	for i := range f.events.events {
		if f.events.events[i].ID == 101 {
			f.events.events[i].ResultsSubmitted = true
		}
	}
	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionSubmit})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, models.StageConfirmingChanges, res.State.Stage)
	assert.Empty(t, f.backend.batches)
}

func TestWorkflowRejectsStateWhenOfficialsChange(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.editing(t)
	f.regions.regions[0].RBAID = 999

	_, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionSubmit})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestWorkflowRepositoryFaultIsReturned(t *testing.T) {
	f := newWorkflowFixture(t)
	f.regions.err = errors.New("connection reset")
	_, err := f.svc.Start(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestWorkflowTransitionDoesNotMutateInput(t *testing.T) {
	f := newWorkflowFixture(t)
	state := f.confirming(t, models.EventEdit{EventID: 101, RouteID: intPtr(13)})
	before := state.Edits[0].SelectedRoute()

	res, err := f.svc.Transition(context.Background(), state, dto.TransitionInput{Action: models.ActionBack})
	require.NoError(t, err)
	*res.State.Edits[0].RouteID = 15
	assert.Equal(t, before, state.Edits[0].SelectedRoute())
}
