package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
	"github.com/rusa-rba/route-assign/pkg/export"
	"github.com/rusa-rba/route-assign/pkg/storage"
)

type receiptStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type receiptSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string) (id, relPath string, err error)
}

// ReceiptConfig tunes receipt links.
type ReceiptConfig struct {
	APIPrefix string
	Retention time.Duration
}

// ReceiptService archives a PDF recap of each committed batch and serves it
// back through signed links.
type ReceiptService struct {
	storage receiptStorage
	signer  receiptSigner
	cfg     ReceiptConfig
	logger  *zap.Logger
}

// NewReceiptService constructs the service.
func NewReceiptService(store receiptStorage, signer receiptSigner, cfg ReceiptConfig, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	return &ReceiptService{storage: store, signer: signer, cfg: cfg, logger: logger}
}

// Archive renders and stores the recap of n under the commit id.
func (s *ReceiptService) Archive(ctx context.Context, commitID string, n models.Notification) (*models.Receipt, error) {
	if commitID == "" {
		return nil, fmt.Errorf("commit id required")
	}
	data, err := export.RenderPDF(notificationDataset(n))
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	name := path.Join(strconv.Itoa(n.RBAID), commitID+".pdf")
	relPath, err := s.storage.Save(name, data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(commitID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &models.Receipt{
		URL:       fmt.Sprintf("%s/rba/receipts/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a receipt token to the stored file and a download name.
func (s *ReceiptService) Open(ctx context.Context, token string) (*os.File, string, error) {
	commitID, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt link has expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "receipt link is invalid")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open receipt")
	}
	return file, "route-changes-" + commitID + ".pdf", nil
}

// Cleanup drops receipts past the retention window.
func (s *ReceiptService) Cleanup() (int, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired receipts removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}
