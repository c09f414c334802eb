package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/jackc/pgerrcode"
)

type deviceRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewDeviceRepository constructs a [DeviceRepository] backed by db.
func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceRepository {
	logger.Debug().Msg("creating device repository")
	return &deviceRepository{
		db:     db,
		logger: logger,
	}
}

// CreateDevice counts and inserts under a row lock on the owning user, so two
// concurrent registrations cannot both take the last free slot.
func (r *deviceRepository) CreateDevice(ctx context.Context, device models.Device, maxDevices int) (models.Device, error) {
	log := logger.FromContext(ctx).With().
		Str("func", "*deviceRepository.CreateDevice").
		Str("user_id", device.UserID).
		Logger()

	err := r.db.inTx(ctx, "*deviceRepository.CreateDevice", func(tx *sql.Tx) error {
		var userID string
		if err := tx.QueryRowContext(ctx, lockUser, device.UserID).Scan(&userID, new(int64), new(int64), new(time.Time)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			log.Err(err).Msg("error locking user row")
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}

		var count int
		if err := tx.QueryRowContext(ctx, countDevices, device.UserID).Scan(&count); err != nil {
			log.Err(err).Msg("error counting devices")
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
		if count >= maxDevices {
			log.Warn().Int("devices", count).Msg("device limit reached")
			return ErrDeviceLimitReached
		}

		if err := tx.QueryRowContext(ctx, createDevice, device.ID, device.UserID, device.Name).Scan(&device.RegisteredAt); err != nil {
			log.Err(err).Msg("error inserting device")
			if postgresError(err) == pgerrcode.ForeignKeyViolation {
				return ErrUserNotFound
			}
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		return nil
	})
	if err != nil {
		return models.Device{}, err
	}

	return device, nil
}

func (r *deviceRepository) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listDevices, userID)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.ListDevices").Str("user_id", userID).Msg("error listing devices")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	devices := make([]models.Device, 0, 4)
	for rows.Next() {
		var (
			d        models.Device
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.RegisteredAt, &lastSeen); err != nil {
			log.Err(err).Str("func", "*deviceRepository.ListDevices").Msg("error scanning device row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if lastSeen.Valid {
			d.LastSeenAt = &lastSeen.Time
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return devices, nil
}

func (r *deviceRepository) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteDevice, deviceID, userID)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.DeleteDevice").Str("device_id", deviceID).Msg("error deleting device")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// TouchDevice records that deviceID made an authenticated request. Unknown
// devices are ignored.
func (r *deviceRepository) TouchDevice(ctx context.Context, userID, deviceID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, touchDevice, at, deviceID, userID); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*deviceRepository.TouchDevice").
			Str("device_id", deviceID).
			Msg("error updating last seen")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
