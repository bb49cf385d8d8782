package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

type directoryReader interface {
	GetClubName(ctx context.Context, acpCode string) (string, error)
	GetOfficial(ctx context.Context, memberID int) (*models.Official, error)
}

type changeCommitter interface {
	Commit(ctx context.Context, req CommitRequest) (*models.CommitResult, error)
}

type workflowMetrics interface {
	ObserveTransition(from, to models.Stage, outcome string)
	ObserveValidationFailure(code string)
}

// WorkflowService drives the three-stage RBA route assignment workflow. It
// holds no per-instance state: every transition takes the prior state and
// returns a new one.
type WorkflowService struct {
	regions   regionReader
	events    eventReader
	routes    routeReader
	directory directoryReader
	committer changeCommitter
	validator *validator.Validate
	cache     *CacheService
	metrics   workflowMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowCache serves region lists and club names through cache.
func WithWorkflowCache(cache *CacheService) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.cache = cache
	}
}

// WithWorkflowMetrics records transition counters.
func WithWorkflowMetrics(m workflowMetrics) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewWorkflowService constructs the service.
func NewWorkflowService(
	regions regionReader,
	events eventReader,
	routes routeReader,
	directory directoryReader,
	committer changeCommitter,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...WorkflowServiceOption,
) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &WorkflowService{
		regions:   regions,
		events:    events,
		routes:    routes,
		directory: directory,
		committer: committer,
		validator: validate,
		metrics:   (*MetricsService)(nil),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Start opens a new workflow instance on the region selection stage.
func (s *WorkflowService) Start(ctx context.Context) (*dto.TransitionResult, error) {
	regions, err := s.activeRegions(ctx)
	if err != nil {
		s.observe(models.StageStart, models.StageStart, nil, err)
		return nil, err
	}
	state := models.WorkflowState{
		ID:        uuid.NewString(),
		Stage:     models.StageAwaitingRegionSelection,
		UpdatedAt: s.now(),
	}
	result := &dto.TransitionResult{State: state, View: regionSelectionView(regions)}
	s.observe(models.StageStart, state.Stage, result, nil)
	return result, nil
}

// Transition advances state by one user action. Validation failures come back
// as a result with Rejection set; returned errors are faults.
func (s *WorkflowService) Transition(ctx context.Context, state models.WorkflowState, in dto.TransitionInput) (*dto.TransitionResult, error) {
	if state.Stage.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrWorkflowClosed, "")
	}
	if state.Stage == models.StageStart {
		return s.Start(ctx)
	}

	result, err := s.dispatch(ctx, state, in)
	s.observe(state.Stage, stageOf(result, state), result, err)
	if err != nil {
		s.logger.Warn("workflow transition failed",
			zap.String("workflow_id", state.ID),
			zap.String("stage", string(state.Stage)),
			zap.String("action", string(in.Action)),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (s *WorkflowService) dispatch(ctx context.Context, state models.WorkflowState, in dto.TransitionInput) (*dto.TransitionResult, error) {
	if in.Action == models.ActionCancel {
		return s.cancel(ctx, state, in.CancelConfirmed)
	}
	switch state.Stage {
	case models.StageAwaitingRegionSelection:
		if in.Action == models.ActionSubmit {
			return s.selectRegion(ctx, state, in.Region)
		}
		return s.render(ctx, state)
	case models.StageEditingRoutes:
		if in.Action == models.ActionSubmit {
			return s.submitEdits(ctx, state, in.Rows)
		}
		edits := state.Edits
		if in.Rows != nil {
			edits = in.Rows
		}
		return s.render(ctx, state.With(models.StageEditingRoutes, edits, s.now()))
	case models.StageConfirmingChanges:
		if in.Action == models.ActionSubmit {
			return s.confirm(ctx, state)
		}
		return s.render(ctx, state.With(models.StageEditingRoutes, state.Edits, s.now()))
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown workflow stage")
}

// render rebuilds the view of state's stage without changing anything else.
func (s *WorkflowService) render(ctx context.Context, state models.WorkflowState) (*dto.TransitionResult, error) {
	switch state.Stage {
	case models.StageAwaitingRegionSelection:
		regions, err := s.activeRegions(ctx)
		if err != nil {
			return nil, err
		}
		return &dto.TransitionResult{State: state, View: regionSelectionView(regions)}, nil
	case models.StageEditingRoutes:
		snap, err := s.snapshot(ctx, state)
		if err != nil {
			return nil, err
		}
		return &dto.TransitionResult{State: state, View: editingView(snap, state.Edits)}, nil
	case models.StageConfirmingChanges:
		snap, err := s.snapshot(ctx, state)
		if err != nil {
			return nil, err
		}
		records := DiffEdits(state.Edits, snap.eventsByID, snap.routesByID)
		return &dto.TransitionResult{State: state, View: recapView(snap, records)}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown workflow stage")
}

func (s *WorkflowService) cancel(ctx context.Context, state models.WorkflowState, confirmed bool) (*dto.TransitionResult, error) {
	if !confirmed {
		result, err := s.render(ctx, state)
		if err != nil {
			return nil, err
		}
		result.View.Messages = append(result.View.Messages, MessageCancelUnconfirm)
		return result, nil
	}
	next := state.With(models.StageAborted, nil, s.now())
	s.logger.Info("workflow cancelled",
		zap.String("workflow_id", state.ID),
		zap.String("stage", string(state.Stage)),
	)
	return &dto.TransitionResult{State: next, View: abortedView()}, nil
}

func (s *WorkflowService) selectRegion(ctx context.Context, state models.WorkflowState, sel dto.RegionSelection) (*dto.TransitionResult, error) {
	if details := validateSelection(s.validator, sel); len(details) > 0 {
		return s.rejectSelection(ctx, state, details)
	}

	region, err := loadActiveRegion(ctx, s.regions, sel.RegionID)
	if err != nil {
		return nil, err
	}
	if details := CheckIdentity(*region, sel); len(details) > 0 {
		s.logger.Info("rba identity rejected",
			zap.String("workflow_id", state.ID),
			zap.Int("region_id", region.ID),
			zap.Int("member_id", sel.MemberID),
			zap.String("acp_code", sel.ACPCode),
		)
		return s.rejectSelection(ctx, state, details)
	}

	next := state.With(models.StageEditingRoutes, nil, s.now())
	next.RegionID = region.ID
	next.RBAID = region.RBAID
	next.ClubACPCode = region.OrgClub

	snap, err := s.snapshotFor(ctx, *region)
	if err != nil {
		return nil, err
	}
	return &dto.TransitionResult{State: next, View: editingView(snap, nil)}, nil
}

func (s *WorkflowService) rejectSelection(ctx context.Context, state models.WorkflowState, details []appErrors.Detail) (*dto.TransitionResult, error) {
	result, err := s.render(ctx, state.With(models.StageAwaitingRegionSelection, nil, s.now()))
	if err != nil {
		return nil, err
	}
	result.Rejection = rejection(details)
	return result, nil
}

func (s *WorkflowService) submitEdits(ctx context.Context, state models.WorkflowState, rows []models.EventEdit) (*dto.TransitionResult, error) {
	snap, err := s.snapshot(ctx, state)
	if err != nil {
		return nil, err
	}

	details := validateRows(s.validator, rows)
	var records []models.ChangeRecord
	if len(details) == 0 {
		details, records = CheckEdits(snap, rows)
	}
	if len(details) > 0 {
		next := state.With(models.StageEditingRoutes, rows, s.now())
		return &dto.TransitionResult{
			State:     next,
			View:      editingView(snap, rows),
			Rejection: rejection(details),
		}, nil
	}

	next := state.With(models.StageConfirmingChanges, rows, s.now())
	return &dto.TransitionResult{State: next, View: recapView(snap, records)}, nil
}

func (s *WorkflowService) confirm(ctx context.Context, state models.WorkflowState) (*dto.TransitionResult, error) {
	snap, err := s.snapshot(ctx, state)
	if err != nil {
		return nil, err
	}

	// Persisted data may have moved since the recap was shown.
	details, records := CheckEdits(snap, state.Edits)
	if len(details) > 0 {
		return &dto.TransitionResult{
			State:     state,
			View:      recapView(snap, records),
			Rejection: rejection(details),
		}, nil
	}

	commit, err := s.committer.Commit(ctx, CommitRequest{
		Region:  snap.region,
		RBA:     snap.rba,
		Events:  snap.events,
		Routes:  snap.routesByID,
		Records: records,
	})
	if err != nil {
		return nil, err
	}
	if !commit.Committed {
		detail := appErrors.NewDetail(appErrors.ErrBackendCommitFailed, "",
			"The server returned an error when posting your changes. The message is: "+commit.BackendError)
		return &dto.TransitionResult{
			State:     state,
			View:      recapView(snap, records),
			Rejection: rejection([]appErrors.Detail{detail}),
			Commit:    commit,
		}, nil
	}

	next := state.With(models.StageFinished, nil, s.now())
	s.logger.Info("route changes committed",
		zap.String("workflow_id", state.ID),
		zap.Int("region_id", state.RegionID),
		zap.Int("changes", len(records)),
		zap.Bool("notification_sent", commit.NotificationSent),
	)
	return &dto.TransitionResult{State: next, View: finishedView(commit), Commit: commit}, nil
}

// snapshot reloads the region recorded in state and checks its officials
// still match the identity verified in the first stage.
func (s *WorkflowService) snapshot(ctx context.Context, state models.WorkflowState) (*regionSnapshot, error) {
	region, err := loadActiveRegion(ctx, s.regions, state.RegionID)
	if err != nil {
		return nil, err
	}
	if region.RBAID != state.RBAID || region.OrgClub != state.ClubACPCode {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "region officials have changed; please start again")
	}
	return s.snapshotFor(ctx, *region)
}

func (s *WorkflowService) snapshotFor(ctx context.Context, region models.Region) (*regionSnapshot, error) {
	events, err := s.events.ListByRegion(ctx, region.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	routes, err := s.routes.ListByRegion(ctx, region.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routes")
	}
	snap := newRegionSnapshot(region, events, routes)

	official, err := s.directory.GetOfficial(ctx, region.RBAID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "RBA record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load RBA")
	}
	snap.rba = *official
	snap.clubName = s.clubName(ctx, region.OrgClub)
	return snap, nil
}

func (s *WorkflowService) activeRegions(ctx context.Context) ([]models.Region, error) {
	regions, err := ReadThrough(ctx, s.cache, cacheKeyActiveRegions, s.regions.ListActive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load regions")
	}
	return regions, nil
}

// clubName falls back to the ACP code when the directory has no entry.
func (s *WorkflowService) clubName(ctx context.Context, acpCode string) string {
	name, err := ReadThrough(ctx, s.cache, clubCacheKey(acpCode), func(ctx context.Context) (string, error) {
		return s.directory.GetClubName(ctx, acpCode)
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("club lookup failed", zap.String("acp_code", acpCode), zap.Error(err))
		}
		return acpCode
	}
	return name
}

func (s *WorkflowService) observe(from, to models.Stage, result *dto.TransitionResult, err error) {
	switch {
	case err != nil:
		s.metrics.ObserveTransition(from, to, OutcomeFailed)
	case result.Rejection != nil:
		s.metrics.ObserveTransition(from, to, OutcomeRejected)
		for _, d := range result.Rejection.Details {
			s.metrics.ObserveValidationFailure(d.Code)
		}
	default:
		s.metrics.ObserveTransition(from, to, OutcomeAdvanced)
	}
}

func stageOf(result *dto.TransitionResult, fallback models.WorkflowState) models.Stage {
	if result == nil {
		return fallback.Stage
	}
	return result.State.Stage
}
