package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
)

type accountService struct {
	users   store.UserRepository
	records store.SyncRecordRepository

	defaultQuota int64

	now    func() time.Time
	logger *logger.Logger
}

func NewAccountService(users store.UserRepository, records store.SyncRecordRepository, cfg config.Sync, logger *logger.Logger) AccountService {
	return &accountService{
		users:        users,
		records:      records,
		defaultQuota: cfg.DefaultQuotaBytes,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *accountService) EnsureUser(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, ErrInvalidDataProvided
	}

	user, err := s.users.EnsureUser(ctx, userID, s.defaultQuota)
	if err != nil {
		return models.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

func (s *accountService) Usage(ctx context.Context, userID string) (models.Usage, error) {
	usage, err := s.users.GetUsage(ctx, userID)
	if err != nil {
		return models.Usage{}, fmt.Errorf("get usage: %w", err)
	}
	return usage, nil
}

// Export returns every record of the user as stored: payloads stay
// encrypted, tombstones included.
func (s *accountService) Export(ctx context.Context, userID string) (models.Export, error) {
	exportedAt := s.now().UTC()

	records, err := s.records.ExportRecords(ctx, userID)
	if err != nil {
		return models.Export{}, fmt.Errorf("export records: %w", err)
	}
	if records == nil {
		records = []models.SyncRecord{}
	}

	return models.Export{Records: records, ExportedAt: exportedAt}, nil
}

// DeleteAccount removes the user; devices and records cascade in the
// database.
func (s *accountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	logger.FromContext(ctx).Info().Str("user_id", userID).Msg("account deleted")
	return nil
}
