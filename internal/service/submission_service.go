package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

// CalendarBackend persists a batch of finalized events. A false Success with
// a message is a rejection reported to the RBA; an error is a transport or
// storage fault.
type CalendarBackend interface {
	CommitChanges(ctx context.Context, events []models.Event) (*models.BackendResult, error)
}

// CalendarBackendFunc allows using plain functions as backends.
type CalendarBackendFunc func(ctx context.Context, events []models.Event) (*models.BackendResult, error)

// CommitChanges implements CalendarBackend.
func (f CalendarBackendFunc) CommitChanges(ctx context.Context, events []models.Event) (*models.BackendResult, error) {
	return f(ctx, events)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type receiptArchiver interface {
	Archive(ctx context.Context, commitID string, n models.Notification) (*models.Receipt, error)
}

type commitMetrics interface {
	ObserveCalendarCommit(success bool)
	ObserveNotification(success bool)
}

// CommitRequest carries a confirmed batch for one region.
type CommitRequest struct {
	Region  models.Region
	RBA     models.Official
	Events  []models.Event
	Routes  map[int]models.Route
	Records []models.ChangeRecord
}

// SubmissionService stages confirmed changes, sends them to the calendar
// backend and notifies the RBA and operations mailbox.
type SubmissionService struct {
	backend    CalendarBackend
	notifier   Notifier
	audit      auditLogger
	receipts   receiptArchiver
	metrics    commitMetrics
	opsMailbox string
	logger     *zap.Logger
}

// SubmissionServiceOption configures the service.
type SubmissionServiceOption func(*SubmissionService)

// WithNotifier sets the notifier used after a successful commit.
func WithNotifier(n Notifier) SubmissionServiceOption {
	return func(s *SubmissionService) {
		s.notifier = n
	}
}

// WithAuditLogger records committed batches in the audit trail.
func WithAuditLogger(a auditLogger) SubmissionServiceOption {
	return func(s *SubmissionService) {
		s.audit = a
	}
}

// WithReceipts archives a downloadable recap of each committed batch.
func WithReceipts(r receiptArchiver) SubmissionServiceOption {
	return func(s *SubmissionService) {
		s.receipts = r
	}
}

// WithCommitMetrics sets the commit and notification counters.
func WithCommitMetrics(m commitMetrics) SubmissionServiceOption {
	return func(s *SubmissionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithOpsMailbox adds the operations mailbox to every notification.
func WithOpsMailbox(address string) SubmissionServiceOption {
	return func(s *SubmissionService) {
		s.opsMailbox = strings.TrimSpace(address)
	}
}

// NewSubmissionService constructs the service.
func NewSubmissionService(backend CalendarBackend, logger *zap.Logger, opts ...SubmissionServiceOption) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SubmissionService{
		backend: backend,
		metrics: (*MetricsService)(nil),
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Commit applies records to a working copy of the region's events, re-reads
// each changed event and hands the finalized batch to the backend. The
// notification is attempted only after the backend accepts the batch and its
// failure never undoes the commit.
func (s *SubmissionService) Commit(ctx context.Context, req CommitRequest) (*models.CommitResult, error) {
	if len(req.Records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoChangesSubmitted, "")
	}

	ledger := NewEventLedger(req.Events)
	if err := ledger.Apply(req.Records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage route changes")
	}

	finalized := make([]models.Event, 0, len(req.Records))
	entries := make([]models.NotificationEvent, 0, len(req.Records))
	for _, record := range req.Records {
		event, _ := ledger.Get(record.EventID)
		finalized = append(finalized, event)
		entries = append(entries, models.NotificationEvent{
			EventID:  event.ID,
			Date:     event.Date,
			Route:    notificationRoute(event.RouteID, req.Routes),
			Distance: event.Distance,
		})
	}

	result := &models.CommitResult{}
	backendResult, err := s.backend.CommitChanges(ctx, finalized)
	switch {
	case err != nil:
		result.BackendError = err.Error()
	case backendResult == nil:
		result.BackendError = "empty response from calendar backend"
	case !backendResult.Success:
		result.BackendError = backendResult.ErrorMessage
	}
	if result.BackendError != "" {
		s.metrics.ObserveCalendarCommit(false)
		s.logger.Warn("calendar commit failed",
			zap.Int("region_id", req.Region.ID),
			zap.Int("events", len(finalized)),
			zap.String("reason", result.BackendError),
			zap.Error(err),
		)
		return result, nil
	}

	s.metrics.ObserveCalendarCommit(true)
	result.Committed = true
	result.Events = entries
	s.logger.Info("calendar commit succeeded",
		zap.Int("region_id", req.Region.ID),
		zap.Int("rba_id", req.Region.RBAID),
		zap.Int("events", len(finalized)),
	)
	commitID := uuid.NewString()
	s.emitAudit(ctx, commitID, req)

	notification := models.Notification{
		RegionName: req.Region.Descriptor(),
		RBAID:      req.Region.RBAID,
		RBAName:    req.RBA.FullName(),
		Recipients: s.recipients(req.RBA),
		Events:     entries,
	}
	if s.receipts != nil {
		receipt, err := s.receipts.Archive(ctx, commitID, notification)
		if err != nil {
			s.logger.Warn("failed to archive receipt", zap.String("commit_id", commitID), zap.Error(err))
		} else {
			result.Receipt = receipt
		}
	}

	if s.notifier == nil {
		return result, nil
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.metrics.ObserveNotification(false)
		result.NotificationError = err.Error()
		s.logger.Warn("change notification failed", zap.Int("region_id", req.Region.ID), zap.Error(err))
		return result, nil
	}
	s.metrics.ObserveNotification(true)
	result.NotificationSent = true
	return result, nil
}

func (s *SubmissionService) recipients(rba models.Official) []string {
	out := make([]string, 0, 2)
	if email := strings.TrimSpace(rba.Email); email != "" {
		out = append(out, email)
	}
	if s.opsMailbox != "" && !strings.EqualFold(s.opsMailbox, rba.Email) {
		out = append(out, s.opsMailbox)
	}
	return out
}

func (s *SubmissionService) emitAudit(ctx context.Context, commitID string, req CommitRequest) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(req.Records)
	if err != nil {
		s.logger.Warn("failed to encode audit payload", zap.Error(err))
		return
	}
	memberID := req.Region.RBAID
	regionID := strconv.Itoa(req.Region.ID)
	log := &models.AuditLog{
		ID:         commitID,
		MemberID:   &memberID,
		Action:     models.AuditActionRouteCommit,
		Resource:   "region",
		ResourceID: &regionID,
		NewValues:  payload,
		Source:     "rba-workflow",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// notificationRoute renders an assignment for notifications and exports.
func notificationRoute(routeID *int, routes map[int]models.Route) string {
	if routeID == nil {
		return "TBD"
	}
	if route, ok := routes[*routeID]; ok {
		return route.Label()
	}
	return fmt.Sprintf("Route %d", *routeID)
}
