package store

import (
	"context"

	"github.com/MKhiriev/reflog-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// Repository is the local record store. The engine and application code see
// it through two decorators composed in a fixed order:
//
//	trackingRepository -> encryptedRepository -> sqliteRepository
//
// so change tracking observes plaintext and only ciphertext reaches disk.
type Repository interface {
	// Get returns ErrRecordNotFound when the id is unknown.
	Get(ctx context.Context, table, id string) (models.Document, error)
	// Put inserts or replaces docs by their "id" field.
	Put(ctx context.Context, table string, docs ...models.Document) error
	Delete(ctx context.Context, table string, ids ...string) error
	Query(ctx context.Context, table string) ([]models.Document, error)
}

// QueueRepository is the durable outgoing change queue.
type QueueRepository interface {
	Append(ctx context.Context, entries ...models.SyncQueueEntry) error
	// List returns every entry in append order.
	List(ctx context.Context) ([]models.SyncQueueEntry, error)
	HasPending(ctx context.Context, key models.RecordKey) (bool, error)
	Count(ctx context.Context) (int, error)
	// Acknowledge deletes entries with sequence id up to maxSequenceID except
	// those belonging to a record in keep.
	Acknowledge(ctx context.Context, maxSequenceID int64, keep []models.RecordKey) error
}

// MetaRepository is the local sync_meta key-value table.
type MetaRepository interface {
	// GetMeta returns ErrMetaNotFound for keys never set.
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}
