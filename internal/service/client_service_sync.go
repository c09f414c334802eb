// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/validators"
	"github.com/MKhiriev/reflog-sync/models"
)

const (
	pushBatchSize = validators.MaxChangesPerPush
	// pushBatchBytes bounds the encoded request body of one push.
	pushBatchBytes = validators.MaxPushBodyBytes
	pullPageLimit  = 100
)

// epoch is the watermark of a device that never pulled.
var epoch = time.Unix(0, 0).UTC()

// PushResult summarizes one push.
type PushResult struct {
	Sent      int
	Accepted  int
	Conflicts []models.SyncRecord
}

type syncEngine struct {
	records store.Repository
	queue   store.QueueRepository
	meta    store.MetaRepository
	api     adapter.SyncAPI
	session *session.Session
	events  *EventBus

	logger *logger.Logger
}

// NewSyncEngine wires the engine to the decorated local repository. Remote
// changes are written through records with the remote-apply marker, so they
// are encrypted at rest but never queued again.
func NewSyncEngine(
	storages *store.ClientStorages,
	api adapter.SyncAPI,
	sess *session.Session,
	events *EventBus,
	logger *logger.Logger,
) SyncEngine {
	return &syncEngine{
		records: storages.Records,
		queue:   storages.Queue,
		meta:    storages.Meta,
		api:     api,
		session: sess,
		events:  events,
		logger:  logger,
	}
}

// ── push ─────────────────────────────────────────────────────────────────────

func (e *syncEngine) Push(ctx context.Context) (PushResult, error) {
	deviceID, err := e.deviceID(ctx)
	if errors.Is(err, ErrNoDeviceID) {
		e.logger.Debug().Msg("push skipped: device is not registered")
		return PushResult{}, nil
	}
	if err != nil {
		return PushResult{}, err
	}

	if !e.session.IsUnlocked() {
		return PushResult{}, session.ErrVaultLocked
	}

	entries, err := e.queue.List(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("read sync queue: %w", err)
	}
	if len(entries) == 0 {
		return PushResult{}, nil
	}

	var maxRead int64
	for _, entry := range entries {
		maxRead = max(maxRead, entry.SequenceID)
	}

	lastPull, err := e.lastPullTimestamp(ctx)
	if err != nil {
		return PushResult{}, err
	}

	// Records not confirmed by the server stay queued: conflicts, entries
	// this build cannot translate and every record of a batch that was never
	// sent or failed.
	keep := make(map[models.RecordKey]struct{})

	latest := dedupeQueue(entries)
	changes := make([]models.SyncRecord, 0, len(latest))
	for _, entry := range latest {
		change, ok := queueEntryToChange(entry, deviceID)
		if !ok {
			e.logger.Warn().Str("table", entry.TableName).Str("record_id", entry.RecordID).Msg("queue entry for unknown table, leaving it queued")
			keep[entry.Key()] = struct{}{}
			continue
		}
		changes = append(changes, change)
	}

	envelope := models.PushRequest{
		Changes:           []models.SyncRecord{},
		DeviceID:          deviceID,
		LastPullTimestamp: &lastPull,
	}
	batches, err := splitPushBatches(changes, envelope, pushBatchSize, pushBatchBytes)
	if err != nil {
		return PushResult{}, err
	}

	result := PushResult{Sent: len(changes)}

	var pushErr error
	for _, batch := range batches {
		if pushErr != nil {
			markKept(keep, batch)
			continue
		}

		req := envelope
		req.Changes = batch
		pushErr = e.sendBatch(ctx, req, &result, keep)
	}

	keepKeys := make([]models.RecordKey, 0, len(keep))
	for key := range keep {
		keepKeys = append(keepKeys, key)
	}

	// Entries appended while the batches were in flight have a higher
	// sequence id than maxRead and are left alone.
	if len(keepKeys) < len(latest) {
		if err = e.queue.Acknowledge(ctx, maxRead, keepKeys); err != nil {
			return result, errors.Join(pushErr, fmt.Errorf("acknowledge sync queue: %w", err))
		}
	}

	e.logger.Info().
		Int("sent", result.Sent).
		Int("accepted", result.Accepted).
		Int("conflicts", len(result.Conflicts)).
		Msg("push finished")

	return result, pushErr
}

// sendBatch pushes req and halves it while the server answers 413, which
// happens when the server runs with a lower body limit than pushBatchBytes. A
// single record that is still too large is logged and left queued without
// failing the push.
func (e *syncEngine) sendBatch(ctx context.Context, req models.PushRequest, result *PushResult, keep map[models.RecordKey]struct{}) error {
	resp, err := e.api.Push(ctx, req)
	switch {
	case errors.Is(err, adapter.ErrPayloadTooLarge) && len(req.Changes) > 1:
		half := len(req.Changes) / 2
		left, right := req, req
		left.Changes, right.Changes = req.Changes[:half], req.Changes[half:]

		if err = e.sendBatch(ctx, left, result, keep); err != nil {
			markKept(keep, right.Changes)
			return err
		}
		return e.sendBatch(ctx, right, result, keep)

	case errors.Is(err, adapter.ErrPayloadTooLarge):
		rec := req.Changes[0]
		e.logger.Warn().
			Str("record_id", rec.ID).
			Str("record_type", string(rec.RecordType)).
			Int("payload_length", len(rec.EncryptedPayload)).
			Msg("record exceeds the server body limit, leaving it queued")
		markKept(keep, req.Changes)
		return nil

	case err != nil:
		markKept(keep, req.Changes)
		return fmt.Errorf("push batch: %w", err)
	}

	result.Accepted += resp.Accepted
	result.Conflicts = append(result.Conflicts, resp.Conflicts...)
	markKept(keep, resp.Conflicts)
	return nil
}

// splitPushBatches cuts changes into batches of at most maxCount records
// whose encoded request, envelope included, stays within maxBytes. A record
// that does not fit even alone gets a batch of its own.
func splitPushBatches(changes []models.SyncRecord, envelope models.PushRequest, maxCount, maxBytes int) ([][]models.SyncRecord, error) {
	base, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode push envelope: %w", err)
	}

	var (
		batches [][]models.SyncRecord
		start   int
		size    = len(base)
	)
	for i, change := range changes {
		encoded, err := json.Marshal(change)
		if err != nil {
			return nil, fmt.Errorf("encode change %s: %w", change.ID, err)
		}
		// one comma between records
		recSize := len(encoded)
		if i > start {
			recSize++
		}

		if i > start && (i-start == maxCount || size+recSize > maxBytes) {
			batches = append(batches, changes[start:i])
			start, size = i, len(base)
			recSize = len(encoded)
		}
		size += recSize
	}
	if start < len(changes) {
		batches = append(batches, changes[start:])
	}

	return batches, nil
}

// dedupeQueue keeps the newest entry per record, ordered by that entry's
// sequence id. The queue is ordered by sequence id; timestamps are only
// informational.
func dedupeQueue(entries []models.SyncQueueEntry) []models.SyncQueueEntry {
	index := make(map[models.RecordKey]int, len(entries))
	var latest []models.SyncQueueEntry

	for _, entry := range entries {
		if i, ok := index[entry.Key()]; ok {
			latest[i].SequenceID = -1
		}
		index[entry.Key()] = len(latest)
		latest = append(latest, entry)
	}

	out := latest[:0]
	for _, entry := range latest {
		if entry.SequenceID != -1 {
			out = append(out, entry)
		}
	}
	return out
}

func queueEntryToChange(entry models.SyncQueueEntry, deviceID string) (models.SyncRecord, bool) {
	recordType, ok := models.RecordTypeForTable(entry.TableName)
	if !ok {
		return models.SyncRecord{}, false
	}

	change := models.SyncRecord{
		ID:          entry.RecordID,
		RecordType:  recordType,
		IsTombstone: entry.Operation == models.OperationDelete,
		DeviceID:    deviceID,
	}
	if !change.IsTombstone && entry.Payload != nil {
		change.EncryptedPayload = *entry.Payload
	}
	return change, true
}

func markKept(keep map[models.RecordKey]struct{}, records []models.SyncRecord) {
	for _, rec := range records {
		if table, ok := models.TableForRecordType(rec.RecordType); ok {
			keep[models.RecordKey{Table: table, ID: rec.ID}] = struct{}{}
		}
	}
}

// ── pull ─────────────────────────────────────────────────────────────────────

func (e *syncEngine) Pull(ctx context.Context) ([]string, error) {
	key, err := e.session.Key()
	if err != nil {
		return nil, err
	}

	since, err := e.lastPullTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	var changed []string
	err = e.pullPages(ctx, since, func(rec models.SyncRecord) error {
		applied, err := e.applyRemote(ctx, rec, key)
		if err != nil {
			return err
		}
		if applied {
			changed = append(changed, rec.ID)
		}
		return nil
	}, nil)

	return changed, err
}

// pullPages requests pages after since until the server reports no more,
// applying each record with apply and advancing the stored watermark after
// every page. since stays fixed for the whole loop; only the cursor moves.
func (e *syncEngine) pullPages(ctx context.Context, since time.Time, apply func(models.SyncRecord) error, onPage func()) error {
	watermark, err := e.lastPullTimestamp(ctx)
	if err != nil {
		return err
	}

	cursor := ""
	for {
		page, err := e.api.Pull(ctx, models.PullRequest{Since: since, Cursor: cursor, Limit: pullPageLimit})
		if err != nil {
			return fmt.Errorf("pull page: %w", err)
		}

		for _, rec := range page.Changes {
			if err = apply(rec); err != nil {
				return err
			}
		}

		if page.ServerTimestamp.After(watermark) {
			watermark = page.ServerTimestamp.UTC()
			if err = e.meta.SetMeta(ctx, models.MetaLastPullTimestamp, watermark.Format(time.RFC3339Nano)); err != nil {
				return fmt.Errorf("store pull watermark: %w", err)
			}
		}

		if onPage != nil {
			onPage()
		}

		if !page.HasMore {
			return nil
		}
		if page.Cursor == "" {
			return fmt.Errorf("pull page: %w: more pages without a cursor", adapter.ErrServer)
		}
		cursor = page.Cursor
	}
}

// applyRemote reconciles one incoming record and reports whether the local
// store changed.
//
//   - tombstone with a pending local change: the local edit wins and is
//     pushed next cycle; the tombstone is skipped.
//   - tombstone otherwise: the local copy is deleted.
//   - entry: applied only when its own updatedAt is strictly newer than the
//     local copy's.
//   - setting and vault metadata: always applied.
func (e *syncEngine) applyRemote(ctx context.Context, rec models.SyncRecord, key []byte) (bool, error) {
	table, ok := models.TableForRecordType(rec.RecordType)
	if !ok {
		e.logger.Warn().Str("record_id", rec.ID).Str("record_type", string(rec.RecordType)).Msg("skipping record of unknown type")
		return false, nil
	}
	ctx = store.WithRemoteApply(ctx)

	if rec.IsTombstone {
		return e.applyTombstone(ctx, table, rec)
	}

	var doc models.Document
	if err := crypto.OpenPayload(rec.EncryptedPayload, key, &doc); err != nil {
		return false, fmt.Errorf("open record %s: %w", rec.ID, err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	if doc.ID() != rec.ID {
		id, _ := json.Marshal(rec.ID)
		doc["id"] = id
	}

	local, err := e.records.Get(ctx, table, rec.ID)
	hadLocal := err == nil
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return false, fmt.Errorf("read local %s/%s: %w", table, rec.ID, err)
	}

	if table == models.TableEntries && hadLocal {
		incoming, ok := doc.UpdatedAt()
		if !ok {
			incoming = rec.UpdatedAt
		}
		if current, ok := local.UpdatedAt(); ok && !incoming.After(current) {
			return false, nil
		}
	}

	if err = e.records.Put(ctx, table, doc); err != nil {
		return false, fmt.Errorf("apply %s/%s: %w", table, rec.ID, err)
	}

	if table == models.TableEntries && hadLocal {
		e.publishConflict(table, rec.ID, entryTitle(doc, rec.ID), ConflictUpdated)
	}
	return true, nil
}

func (e *syncEngine) applyTombstone(ctx context.Context, table string, rec models.SyncRecord) (bool, error) {
	pending, err := e.queue.HasPending(ctx, models.RecordKey{Table: table, ID: rec.ID})
	if err != nil {
		return false, fmt.Errorf("check pending %s/%s: %w", table, rec.ID, err)
	}
	if pending {
		e.publishConflict(table, rec.ID, rec.ID, ConflictDeleted)
		return false, nil
	}

	local, err := e.records.Get(ctx, table, rec.ID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read local %s/%s: %w", table, rec.ID, err)
	}

	if err = e.records.Delete(ctx, table, rec.ID); err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", table, rec.ID, err)
	}

	e.publishConflict(table, rec.ID, entryTitle(local, rec.ID), ConflictDeleted)
	return true, nil
}

func (e *syncEngine) publishConflict(table, id, title string, kind ConflictType) {
	e.events.Publish(Event{
		Type:     EventConflictResolved,
		Conflict: &Conflict{Table: table, RecordID: id, Title: title, Type: kind},
	})
}

func entryTitle(doc models.Document, fallback string) string {
	var title string
	if raw, ok := doc["title"]; ok && json.Unmarshal(raw, &title) == nil && title != "" {
		return title
	}
	return fallback
}

// ── sync / initial sync ──────────────────────────────────────────────────────

func (e *syncEngine) Sync(ctx context.Context) error {
	e.events.Publish(Event{Type: EventSyncStart})

	// A failed push still pulls: remote changes do not depend on it and the
	// unsent records stay queued for the next cycle.
	_, pushErr := e.Push(ctx)
	if errors.Is(pushErr, session.ErrVaultLocked) {
		return e.fail(pushErr)
	}

	changed, err := e.Pull(ctx)
	if err = errors.Join(pushErr, err); err != nil {
		return e.fail(err)
	}

	e.events.Publish(Event{Type: EventSyncComplete, ChangedIDs: changed})
	return nil
}

func (e *syncEngine) InitialSync(ctx context.Context) error {
	done, err := e.meta.GetMeta(ctx, models.MetaInitialSyncDone)
	if err == nil && done == "true" {
		return nil
	}
	if err != nil && !errors.Is(err, store.ErrMetaNotFound) {
		return fmt.Errorf("read initial sync marker: %w", err)
	}

	key, err := e.session.Key()
	if err != nil {
		return err
	}

	e.events.Publish(Event{Type: EventSyncStart})

	var (
		applied int
		changed []string
	)
	err = e.pullPages(ctx, epoch, func(rec models.SyncRecord) error {
		if rec.IsTombstone {
			return nil
		}
		ok, err := e.applyRemote(ctx, rec, key)
		if err != nil {
			return err
		}
		if ok {
			applied++
			changed = append(changed, rec.ID)
		}
		return nil
	}, func() {
		e.events.Publish(Event{Type: EventInitialSyncProgress, Progress: applied})
	})
	if err != nil {
		return e.fail(err)
	}

	if err = e.meta.SetMeta(ctx, models.MetaInitialSyncDone, "true"); err != nil {
		return e.fail(fmt.Errorf("store initial sync marker: %w", err))
	}

	e.logger.Info().Int("records", applied).Msg("initial sync finished")
	e.events.Publish(Event{Type: EventSyncComplete, ChangedIDs: changed})
	return nil
}

func (e *syncEngine) fail(err error) error {
	e.logger.Err(err).Msg("sync failed")
	e.events.Publish(Event{Type: EventSyncError, Err: err})
	return err
}

// ── device / meta ────────────────────────────────────────────────────────────

func (e *syncEngine) RegisterDevice(ctx context.Context, name string) (string, error) {
	deviceID, err := e.deviceID(ctx)
	if err == nil {
		e.api.SetDeviceID(deviceID)
		return deviceID, nil
	}
	if !errors.Is(err, ErrNoDeviceID) {
		return "", err
	}

	resp, err := e.api.RegisterDevice(ctx, name)
	if err != nil {
		return "", fmt.Errorf("register device: %w", err)
	}

	if err = e.meta.SetMeta(ctx, models.MetaDeviceID, resp.DeviceID); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	e.api.SetDeviceID(resp.DeviceID)

	e.logger.Info().Str("device_id", resp.DeviceID).Msg("device registered")
	return resp.DeviceID, nil
}

func (e *syncEngine) deviceID(ctx context.Context) (string, error) {
	deviceID, err := e.meta.GetMeta(ctx, models.MetaDeviceID)
	if errors.Is(err, store.ErrMetaNotFound) || err == nil && deviceID == "" {
		return "", ErrNoDeviceID
	}
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	return deviceID, nil
}

func (e *syncEngine) lastPullTimestamp(ctx context.Context) (time.Time, error) {
	raw, err := e.meta.GetMeta(ctx, models.MetaLastPullTimestamp)
	if errors.Is(err, store.ErrMetaNotFound) {
		return epoch, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read pull watermark: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		e.logger.Warn().Str("value", raw).Msg("unreadable pull watermark, pulling from epoch")
		return epoch, nil
	}
	return ts.UTC(), nil
}
