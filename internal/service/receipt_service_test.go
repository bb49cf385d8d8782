package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
	"github.com/rusa-rba/route-assign/pkg/storage"
)

func newTestReceipts(t *testing.T, now *time.Time) *ReceiptService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSigner("receipt-secret", time.Hour).WithClock(func() time.Time { return *now })
	return NewReceiptService(store, signer, ReceiptConfig{APIPrefix: "/api/v1/"}, nil)
}

func TestReceiptServiceArchiveAndOpen(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestReceipts(t, &now)

	receipt, err := svc.Archive(context.Background(), "commit-1", testNotification())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(receipt.URL, "/api/v1/rba/receipts/commit-1."))
	assert.Equal(t, now.Add(time.Hour), receipt.ExpiresAt)

	token := strings.TrimPrefix(receipt.URL, "/api/v1/rba/receipts/")
	file, name, err := svc.Open(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "route-changes-commit-1.pdf", name)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestReceiptServiceRejectsBadLinks(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestReceipts(t, &now)
	receipt, err := svc.Archive(context.Background(), "commit-2", testNotification())
	require.NoError(t, err)
	token := receipt.URL[strings.LastIndex(receipt.URL, "/")+1:]

	_, _, err = svc.Open(context.Background(), "garbage")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	now = now.Add(2 * time.Hour)
	_, _, err = svc.Open(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

type receiptRecorder struct {
	ids []string
	err error
}

func (r *receiptRecorder) Archive(ctx context.Context, commitID string, n models.Notification) (*models.Receipt, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.ids = append(r.ids, commitID)
	return &models.Receipt{URL: "/rba/receipts/" + commitID}, nil
}

func TestSubmissionCommitAttachesReceipt(t *testing.T) {
	receipts := &receiptRecorder{}
	audit := &auditRecorder{}
	svc := NewSubmissionService(&backendRecorder{}, nil, WithReceipts(receipts), WithAuditLogger(audit))

	result, err := svc.Commit(context.Background(), commitRequest(models.ChangeRecord{EventID: 101, RouteChanged: true, RouteID: 13}))
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)
	require.Len(t, receipts.ids, 1)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, audit.logs[0].ID, receipts.ids[0])
}

func TestSubmissionCommitSurvivesReceiptFailure(t *testing.T) {
	svc := NewSubmissionService(&backendRecorder{}, nil, WithReceipts(&receiptRecorder{err: errors.New("disk full")}))

	result, err := svc.Commit(context.Background(), commitRequest(models.ChangeRecord{EventID: 101, RouteChanged: true, RouteID: 13}))
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.Nil(t, result.Receipt)
}
