package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
)

// Storages groups the server-side repositories.
type Storages struct {
	UserRepository       UserRepository
	DeviceRepository     DeviceRepository
	SyncRecordRepository SyncRecordRepository

	db *DB
}

// NewStorages connects to postgres, migrates it and builds the repositories.
func NewStorages(ctx context.Context, cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectPostgres(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	return &Storages{
		UserRepository:       NewUserRepository(db, logger),
		DeviceRepository:     NewDeviceRepository(db, logger),
		SyncRecordRepository: NewSyncRecordRepository(db, logger),
		db:                   db,
	}, nil
}

// Close closes the database connection pool.
func (s *Storages) Close() error {
	return s.db.Close()
}
