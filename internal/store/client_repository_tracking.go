package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/models"
)

// trackingRepository queues every local mutation of a synced table for push.
// It wraps the encryption decorator, so it sees plaintext documents and seals
// them with the sync codec before they are written to the queue.
//
// The queue entry is made durable before the mutation itself. A crash in
// between leaves a queued change whose local write was lost, never the
// opposite.
type trackingRepository struct {
	next    Repository
	queue   QueueRepository
	session *session.Session
	now     func() time.Time
	// onChange is called after a tracked mutation completes.
	onChange func()
}

// NewTrackingRepository wraps next with change tracking into queue.
// onChange may be nil.
func NewTrackingRepository(next Repository, queue QueueRepository, sess *session.Session, onChange func()) Repository {
	return &trackingRepository{
		next:     next,
		queue:    queue,
		session:  sess,
		now:      time.Now,
		onChange: onChange,
	}
}

func isSyncedTable(table string) bool {
	_, ok := models.RecordTypeForTable(table)
	return ok
}

func (r *trackingRepository) Get(ctx context.Context, table, id string) (models.Document, error) {
	return r.next.Get(ctx, table, id)
}

func (r *trackingRepository) Query(ctx context.Context, table string) ([]models.Document, error) {
	return r.next.Query(ctx, table)
}

func (r *trackingRepository) Put(ctx context.Context, table string, docs ...models.Document) error {
	if !isSyncedTable(table) || IsRemoteApply(ctx) {
		return r.next.Put(ctx, table, docs...)
	}

	key, err := r.session.Key()
	if err != nil {
		return err
	}

	now := r.now().UTC()
	entries := make([]models.SyncQueueEntry, 0, len(docs))
	for _, doc := range docs {
		if doc.ID() == "" {
			return fmt.Errorf("%w: document without id", ErrEncodingDocument)
		}

		op := models.OperationUpdate
		if _, err := r.next.Get(ctx, table, doc.ID()); errors.Is(err, ErrRecordNotFound) {
			op = models.OperationCreate
		} else if err != nil {
			return err
		}

		payload, err := crypto.SealPayload(doc, key)
		if err != nil {
			return err
		}

		entries = append(entries, models.SyncQueueEntry{
			TableName: table,
			RecordID:  doc.ID(),
			Operation: op,
			Timestamp: now,
			Payload:   &payload,
		})
	}

	if err := r.queue.Append(ctx, entries...); err != nil {
		return err
	}

	if err := r.next.Put(ctx, table, docs...); err != nil {
		return err
	}

	r.changed()
	return nil
}

func (r *trackingRepository) Delete(ctx context.Context, table string, ids ...string) error {
	if !isSyncedTable(table) || IsRemoteApply(ctx) {
		return r.next.Delete(ctx, table, ids...)
	}

	if !r.session.IsUnlocked() {
		return session.ErrVaultLocked
	}

	now := r.now().UTC()
	entries := make([]models.SyncQueueEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, models.SyncQueueEntry{
			TableName: table,
			RecordID:  id,
			Operation: models.OperationDelete,
			Timestamp: now,
		})
	}

	if err := r.queue.Append(ctx, entries...); err != nil {
		return err
	}

	if err := r.next.Delete(ctx, table, ids...); err != nil {
		return err
	}

	r.changed()
	return nil
}

func (r *trackingRepository) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}
