package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/logger"
)

type metaRepository struct {
	*DB
	logger *logger.Logger
}

// NewMetaRepository constructs a [MetaRepository] on the sync_meta table.
func NewMetaRepository(db *DB, logger *logger.Logger) MetaRepository {
	return &metaRepository{
		DB:     db,
		logger: logger,
	}
}

func (m *metaRepository) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := m.QueryRowContext(ctx, getMeta, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMetaNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metaRepository.GetMeta").Str("key", key).Msg("failed to read sync meta")
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return value, nil
}

func (m *metaRepository) SetMeta(ctx context.Context, key, value string) error {
	if _, err := m.ExecContext(ctx, setMeta, key, value); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "metaRepository.SetMeta").Str("key", key).Msg("failed to write sync meta")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
