package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
//
// Users are not registered explicitly: the identity provider owns accounts,
// and a row is created the first time a token subject reaches the API.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureUser upserts the users row for userID. The no-op DO UPDATE makes
// RETURNING yield the row on both paths, so one round trip serves every
// request.
func (r *userRepository) EnsureUser(ctx context.Context, userID string, quota int64) (models.User, error) {
	log := logger.FromContext(ctx)

	var user models.User
	err := r.db.QueryRowContext(ctx, ensureUser, userID, quota).
		Scan(&user.ID, &user.StorageUsedBytes, &user.StorageQuotaBytes, &user.CreatedAt)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.EnsureUser").Str("user_id", userID).Msg("error provisioning user")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return user, nil
}

// GetUsage reports the storage counters of the user together with the number
// of stored records (tombstones included) and registered devices.
func (r *userRepository) GetUsage(ctx context.Context, userID string) (models.Usage, error) {
	log := logger.FromContext(ctx)

	var usage models.Usage
	err := r.db.QueryRowContext(ctx, getUsage, userID).
		Scan(&usage.StorageUsedBytes, &usage.StorageQuotaBytes, &usage.RecordCount, &usage.DeviceCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Usage{}, ErrUserNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*userRepository.GetUsage").Str("user_id", userID).Msg("error reading usage")
		return models.Usage{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return usage, nil
}

// DeleteUser removes the user row. Devices and sync records are removed by
// ON DELETE CASCADE in the same statement.
func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteUser, userID)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.DeleteUser").Str("user_id", userID).Msg("error deleting user")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	log.Info().Str("func", "*userRepository.DeleteUser").Str("user_id", userID).Msg("account deleted")
	return nil
}
