package service

import (
	"context"

	"github.com/MKhiriev/reflog-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_service_mock.go -package=mock

// SyncEngine moves changes between the local store and the sync server.
// Every method requires an unlocked session.
type SyncEngine interface {
	// Push sends the deduplicated local queue in batches and drops the
	// queue entries the server accepted. Conflicted records stay queued.
	// It is a no-op until the device is registered.
	Push(ctx context.Context) (PushResult, error)

	// Pull applies every remote change since the stored watermark and
	// returns the ids of the records it changed locally.
	Pull(ctx context.Context) ([]string, error)

	// Sync runs Push then Pull and reports progress on the event bus. A
	// failure skips the remaining steps but keeps what already committed.
	Sync(ctx context.Context) error

	// InitialSync pulls everything from the epoch once per device. It is a
	// no-op after it has completed.
	InitialSync(ctx context.Context) error

	// RegisterDevice registers this device with the server unless a device
	// id is already stored, and returns the id.
	RegisterDevice(ctx context.Context, name string) (string, error)
}

// SyncScheduler decides when the engine runs.
type SyncScheduler interface {
	// Start begins periodic syncing and triggers an immediate sync.
	Start(ctx context.Context)

	// Stop cancels every timer. A sync already in flight is not aborted.
	Stop()

	// RequestSync schedules a sync after the debounce delay; further
	// requests within the delay collapse into that one.
	RequestSync()

	// TriggerSync starts a sync now unless one is already running.
	TriggerSync()

	// SetForeground records whether the client is in the foreground.
	// Periodic syncs are skipped in the background; coming to the
	// foreground triggers a sync.
	SetForeground(foreground bool)

	// NetworkReconnected triggers a sync.
	NetworkReconnected()
}

// VaultService manages the passphrase-derived key of the local vault.
type VaultService interface {
	// IsSetUp reports whether local vault metadata exists.
	IsSetUp(ctx context.Context) (bool, error)

	// Setup creates the vault and unlocks the session. salt may be nil to
	// create a new vault, or the salt of an existing vault when joining it
	// from a new device. The salt in use is returned.
	Setup(ctx context.Context, passphrase string, salt []byte) ([]byte, error)

	// Unlock verifies passphrase against the stored sentinel and installs
	// the derived key in the session.
	Unlock(ctx context.Context, passphrase string) error

	// Lock zeroes the key.
	Lock()
}

// EntryService is the local journal API. Every write is tracked for sync.
type EntryService interface {
	Create(ctx context.Context, title, body string, tags []string) (models.Entry, error)
	Update(ctx context.Context, entry models.Entry) (models.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Entry, error)
	List(ctx context.Context) ([]models.Entry, error)
}
