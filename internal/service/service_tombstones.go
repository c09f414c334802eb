package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/store"
)

type tombstoneService struct {
	records   store.SyncRecordRepository
	retention time.Duration

	logger *logger.Logger
}

// NewTombstoneService purges tombstones older than cfg.TombstoneRetention.
// Live records are never purged, whatever their age.
func NewTombstoneService(records store.SyncRecordRepository, cfg config.Sync, logger *logger.Logger) TombstoneService {
	return &tombstoneService{
		records:   records,
		retention: cfg.TombstoneRetention,
		logger:    logger,
	}
}

func (s *tombstoneService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-s.retention)

	purged, err := s.records.PurgeTombstones(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}

	s.logger.Info().
		Time("cutoff", cutoff).
		Int64("purged", purged).
		Msg("tombstones purged")
	return purged, nil
}
