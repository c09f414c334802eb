package store

import (
	"context"
	"time"

	"github.com/MKhiriev/reflog-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// UserRepository owns the users table of the sync server.
type UserRepository interface {
	// EnsureUser returns the user with the given id, creating it with quota
	// on first sight.
	EnsureUser(ctx context.Context, userID string, quota int64) (models.User, error)
	GetUsage(ctx context.Context, userID string) (models.Usage, error)
	// DeleteUser removes the user; devices and sync records cascade.
	DeleteUser(ctx context.Context, userID string) error
}

// DeviceRepository owns the devices table of the sync server.
type DeviceRepository interface {
	// CreateDevice inserts device unless the user already has maxDevices
	// devices, in which case ErrDeviceLimitReached is returned.
	CreateDevice(ctx context.Context, device models.Device, maxDevices int) (models.Device, error)
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	DeleteDevice(ctx context.Context, userID, deviceID string) error
	TouchDevice(ctx context.Context, userID, deviceID string, at time.Time) error
}

// SyncRecordRepository owns the sync_records table of the sync server.
type SyncRecordRepository interface {
	// RunInTx runs fn in one transaction. Nothing fn wrote is kept when it
	// returns an error.
	RunInTx(ctx context.Context, fn func(tx SyncTx) error) error
	ExportRecords(ctx context.Context, userID string) ([]models.SyncRecord, error)
	// PurgeTombstones hard-deletes tombstones last updated before olderThan
	// and reports how many rows were removed.
	PurgeTombstones(ctx context.Context, olderThan time.Time) (int64, error)
	IsRetryable(err error) bool
}

// SyncTx is the transactional view used while merging a push batch or
// reading a pull page.
//
// Pushes hold the user row FOR UPDATE and pulls hold it FOR SHARE. A push
// stamps its rows with Now taken after its lock and a pull reports Now taken
// after its lock, so every row committed after a pull watermark is stamped
// later than that watermark.
type SyncTx interface {
	// LockUser reads the user row with FOR UPDATE so concurrent pushes of
	// the same user serialize on it.
	LockUser(ctx context.Context, userID string) (models.User, error)
	// ShareLockUser waits for in-flight pushes of the user to finish. A
	// missing user is not an error; there is nothing to pull.
	ShareLockUser(ctx context.Context, userID string) error
	// Now returns the database clock.
	Now(ctx context.Context) (time.Time, error)
	// PullPage returns up to limit records updated after since, ordered by
	// (updated_at, id) and starting strictly after the cursor when given.
	PullPage(ctx context.Context, userID string, since time.Time, after *models.PullCursor, limit int) ([]models.StoredRecord, error)
	// FindRecords returns the current rows for ids, keyed by id.
	FindRecords(ctx context.Context, userID string, ids []string) (map[string]models.StoredRecord, error)
	// UpsertRecord writes rec, incrementing version for existing rows, and
	// returns it with the stored version and timestamps.
	UpsertRecord(ctx context.Context, rec models.StoredRecord) (models.StoredRecord, error)
	AdjustStorage(ctx context.Context, userID string, delta int64) error
}
