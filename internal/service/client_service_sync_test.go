// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/mock"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func vaultKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0xA0 + i)
	}
	return key
}

type testClient struct {
	storages *store.ClientStorages
	session  *session.Session
	engine   service.SyncEngine
	entries  service.EntryService

	mu     sync.Mutex
	events []service.Event
}

func newTestClient(t *testing.T, api adapter.SyncAPI) *testClient {
	t.Helper()
	ctx := context.Background()

	sess := session.New()
	sess.Unlock(vaultKey())

	cfg := config.ClientStorage{DB: config.ClientDB{DSN: filepath.Join(t.TempDir(), "client.db")}}
	storages, err := store.NewClientStorages(ctx, cfg, sess, nil, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { storages.Close() })

	c := &testClient{storages: storages, session: sess}

	events := service.NewEventBus()
	events.Subscribe(func(e service.Event) {
		c.mu.Lock()
		c.events = append(c.events, e)
		c.mu.Unlock()
	})

	c.engine = service.NewSyncEngine(storages, api, sess, events, logger.Nop())
	c.entries = service.NewEntryService(storages.Records)
	return c
}

func (c *testClient) setDeviceID(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, c.storages.Meta.SetMeta(context.Background(), models.MetaDeviceID, id))
}

func (c *testClient) eventsOf(typ service.EventType) []service.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []service.Event
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (c *testClient) queueLen(t *testing.T) int {
	t.Helper()
	n, err := c.storages.Queue.Count(context.Background())
	require.NoError(t, err)
	return n
}

func (c *testClient) watermark(t *testing.T) time.Time {
	t.Helper()
	raw, err := c.storages.Meta.GetMeta(context.Background(), models.MetaLastPullTimestamp)
	require.NoError(t, err)
	ts, err := time.Parse(time.RFC3339Nano, raw)
	require.NoError(t, err)
	return ts
}

func sealedEntry(t *testing.T, entry models.Entry) models.SyncRecord {
	t.Helper()
	payload, err := crypto.SealPayload(entry, vaultKey())
	require.NoError(t, err)
	return models.SyncRecord{ID: entry.ID, RecordType: models.RecordTypeEntry, EncryptedPayload: payload, UpdatedAt: entry.UpdatedAt}
}

func lastPage(changes ...models.SyncRecord) models.PullResponse {
	return models.PullResponse{Changes: changes, ServerTimestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// fakeServer keeps records in memory and follows the merge rules of the real
// server: last-pull conflicts, server-assigned updatedAt, keyset pages.
type fakeServer struct {
	adapter.SyncAPI

	mu      sync.Mutex
	clock   time.Time
	records map[string]models.SyncRecord
	nextID  int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		clock:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		records: make(map[string]models.SyncRecord),
	}
}

func (s *fakeServer) SetDeviceID(string) {}

func (s *fakeServer) RegisterDevice(_ context.Context, name string) (models.RegisterDeviceResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return models.RegisterDeviceResponse{DeviceID: fmt.Sprintf("dev-%d", s.nextID), Name: name, RegisteredAt: s.clock}, nil
}

func (s *fakeServer) Push(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := models.PushResponse{Conflicts: []models.SyncRecord{}}
	for _, change := range req.Changes {
		if current, ok := s.records[change.ID]; ok && current.UpdatedAt.After(*req.LastPullTimestamp) {
			resp.Conflicts = append(resp.Conflicts, current)
			continue
		}
		s.clock = s.clock.Add(time.Millisecond)
		change.UpdatedAt = s.clock
		change.Version = s.records[change.ID].Version + 1
		s.records[change.ID] = change
		resp.Accepted++
	}
	resp.ServerTimestamp = s.clock
	return resp, nil
}

func (s *fakeServer) Pull(_ context.Context, req models.PullRequest) (models.PullResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []models.SyncRecord
	for _, rec := range s.records {
		if rec.UpdatedAt.After(req.Since) {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.Before(rows[j].UpdatedAt)
		}
		return rows[i].ID < rows[j].ID
	})

	if req.Cursor != "" {
		after, err := service.DecodeCursor(req.Cursor)
		if err != nil {
			return models.PullResponse{}, adapter.ErrBadRequest
		}
		for len(rows) > 0 && (rows[0].UpdatedAt.Before(after.UpdatedAt) ||
			rows[0].UpdatedAt.Equal(after.UpdatedAt) && rows[0].ID <= after.ID) {
			rows = rows[1:]
		}
	}

	resp := models.PullResponse{ServerTimestamp: s.clock}
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
		last := rows[len(rows)-1]
		resp.HasMore = true
		resp.Cursor = service.EncodeCursor(models.PullCursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
		resp.ServerTimestamp = last.UpdatedAt.Add(-time.Microsecond)
	}
	resp.Changes = rows
	return resp, nil
}

// ── end to end ────────────────────────────────────────────────────────────────

func TestSyncEngine_TwoDevices(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()

	laptop := newTestClient(t, server)
	phone := newTestClient(t, server)

	_, err := laptop.engine.RegisterDevice(ctx, "laptop")
	require.NoError(t, err)
	_, err = phone.engine.RegisterDevice(ctx, "phone")
	require.NoError(t, err)

	// laptop writes, phone joins
	entry, err := laptop.entries.Create(ctx, "Monday", "first entry", []string{"work"})
	require.NoError(t, err)
	require.NoError(t, laptop.engine.Sync(ctx))
	assert.Zero(t, laptop.queueLen(t))

	require.NoError(t, phone.engine.InitialSync(ctx))
	got, err := phone.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.Title)
	assert.Equal(t, "first entry", got.Body)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.Zero(t, phone.queueLen(t), "remote writes are not queued again")

	// phone edits, laptop receives the edit
	got.Body = "edited on phone"
	_, err = phone.entries.Update(ctx, got)
	require.NoError(t, err)
	require.NoError(t, phone.engine.Sync(ctx))

	require.NoError(t, laptop.engine.Sync(ctx))
	onLaptop, err := laptop.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited on phone", onLaptop.Body)

	complete := laptop.eventsOf(service.EventSyncComplete)
	require.NotEmpty(t, complete)
	assert.Contains(t, complete[len(complete)-1].ChangedIDs, entry.ID)

	conflicts := laptop.eventsOf(service.EventConflictResolved)
	require.Len(t, conflicts, 1)
	assert.Equal(t, service.ConflictUpdated, conflicts[0].Conflict.Type)
	assert.Equal(t, "Monday", conflicts[0].Conflict.Title)

	// laptop deletes, phone loses the entry
	require.NoError(t, laptop.entries.Delete(ctx, entry.ID))
	require.NoError(t, laptop.engine.Sync(ctx))
	require.NoError(t, phone.engine.Sync(ctx))

	_, err = phone.entries.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, service.ErrEntryNotFound)

	deleted := phone.eventsOf(service.EventConflictResolved)
	require.NotEmpty(t, deleted)
	assert.Equal(t, service.ConflictDeleted, deleted[len(deleted)-1].Conflict.Type)
}

func TestSyncEngine_StaleEditBecomesConflict(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()

	a := newTestClient(t, server)
	b := newTestClient(t, server)
	a.setDeviceID(t, "dev-a")
	b.setDeviceID(t, "dev-b")

	entry, err := a.entries.Create(ctx, "shared", "v1", nil)
	require.NoError(t, err)
	require.NoError(t, a.engine.Sync(ctx))
	require.NoError(t, b.engine.Sync(ctx))

	// a pushes a newer version before b pulls it
	entry.Body = "v2 from a"
	_, err = a.entries.Update(ctx, entry)
	require.NoError(t, err)
	require.NoError(t, a.engine.Sync(ctx))

	onB, err := b.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	onB.Body = "v2 from b"
	_, err = b.entries.Update(ctx, onB)
	require.NoError(t, err)

	result, err := b.engine.Push(ctx)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, entry.ID, result.Conflicts[0].ID)
	assert.Equal(t, 1, b.queueLen(t), "conflicted record stays queued")
}

// ── push ──────────────────────────────────────────────────────────────────────

func TestSyncEngine_Push_DedupesQueue(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	first, err := c.entries.Create(ctx, "one", "v1", nil)
	require.NoError(t, err)
	first.Body = "v2"
	_, err = c.entries.Update(ctx, first)
	require.NoError(t, err)
	first.Body = "v3"
	_, err = c.entries.Update(ctx, first)
	require.NoError(t, err)
	second, err := c.entries.Create(ctx, "two", "only", nil)
	require.NoError(t, err)

	api.EXPECT().Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			require.Len(t, req.Changes, 2)
			assert.Equal(t, "dev-1", req.DeviceID)
			require.NotNil(t, req.LastPullTimestamp)
			assert.True(t, req.LastPullTimestamp.Equal(time.Unix(0, 0)))

			assert.Equal(t, first.ID, req.Changes[0].ID)
			assert.Equal(t, second.ID, req.Changes[1].ID)

			var sent models.Entry
			require.NoError(t, crypto.OpenPayload(req.Changes[0].EncryptedPayload, vaultKey(), &sent))
			assert.Equal(t, "v3", sent.Body)

			return models.PushResponse{Accepted: 2}, nil
		})

	result, err := c.engine.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 2, result.Accepted)
	assert.Zero(t, c.queueLen(t))
}

func TestSyncEngine_Push_Tombstone(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	entry, err := c.entries.Create(ctx, "gone", "soon", nil)
	require.NoError(t, err)
	require.NoError(t, c.entries.Delete(ctx, entry.ID))

	api.EXPECT().Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			require.Len(t, req.Changes, 1)
			assert.True(t, req.Changes[0].IsTombstone)
			assert.Empty(t, req.Changes[0].EncryptedPayload)
			return models.PushResponse{Accepted: 1}, nil
		})

	_, err = c.engine.Push(ctx)
	require.NoError(t, err)
}

func TestSyncEngine_Push_PartialProgress(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	for i := range 150 {
		_, err := c.entries.Create(ctx, fmt.Sprintf("entry %d", i), "body", nil)
		require.NoError(t, err)
	}

	gomock.InOrder(
		api.EXPECT().Push(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
				assert.Len(t, req.Changes, 100)
				return models.PushResponse{Accepted: 100}, nil
			}),
		api.EXPECT().Push(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
				assert.Len(t, req.Changes, 50)
				return models.PushResponse{}, adapter.ErrNetwork
			}),
	)

	result, err := c.engine.Push(ctx)
	assert.ErrorIs(t, err, adapter.ErrNetwork)
	assert.Equal(t, 100, result.Accepted)
	assert.Equal(t, 50, c.queueLen(t), "the failed batch stays queued")
}

func TestSyncEngine_Push_KeepsChangesMadeDuringPush(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	_, err := c.entries.Create(ctx, "before", "", nil)
	require.NoError(t, err)

	var during models.Entry
	api.EXPECT().Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			during, err = c.entries.Create(ctx, "during", "", nil)
			require.NoError(t, err)
			return models.PushResponse{Accepted: len(req.Changes)}, nil
		})

	_, err = c.engine.Push(ctx)
	require.NoError(t, err)

	entries, err := c.storages.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, during.ID, entries[0].RecordID)
}

func TestSyncEngine_Push_WithoutDeviceIsNoop(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	_, err := c.entries.Create(ctx, "offline", "", nil)
	require.NoError(t, err)

	result, err := c.engine.Push(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 1, c.queueLen(t))
}

func TestSyncEngine_Push_Locked(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")
	c.session.Lock()

	_, err := c.engine.Push(ctx)
	assert.ErrorIs(t, err, session.ErrVaultLocked)
}

func TestSyncEngine_Push_KeepsUnknownTableEntries(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	require.NoError(t, c.storages.Queue.Append(ctx, models.SyncQueueEntry{
		TableName: "attachments",
		RecordID:  "att-1",
		Operation: models.OperationCreate,
		Timestamp: time.Now(),
	}))
	entry, err := c.entries.Create(ctx, "known", "", nil)
	require.NoError(t, err)

	api.EXPECT().Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			require.Len(t, req.Changes, 1)
			assert.Equal(t, entry.ID, req.Changes[0].ID)
			return models.PushResponse{Accepted: 1}, nil
		})

	result, err := c.engine.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	left, err := c.storages.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "attachments", left[0].TableName)
	assert.Equal(t, "att-1", left[0].RecordID)
}

func TestSyncEngine_Push_OversizedRecordStaysQueued(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	big, err := c.entries.Create(ctx, "big", "attachment dump", nil)
	require.NoError(t, err)
	for i := range 2 {
		_, err = c.entries.Create(ctx, fmt.Sprintf("small %d", i), "", nil)
		require.NoError(t, err)
	}

	// The server rejects any body holding big; the engine halves down to it.
	var sizes []int
	api.EXPECT().Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			sizes = append(sizes, len(req.Changes))
			for _, change := range req.Changes {
				if change.ID == big.ID {
					return models.PushResponse{}, adapter.ErrPayloadTooLarge
				}
			}
			return models.PushResponse{Accepted: len(req.Changes)}, nil
		}).Times(3)

	result, err := c.engine.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, sizes)
	assert.Equal(t, 2, result.Accepted)

	left, err := c.storages.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, big.ID, left[0].RecordID)
}

func TestSyncEngine_Sync_PullsAfterRejectedPush(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	_, err := c.entries.Create(ctx, "big", "attachment dump", nil)
	require.NoError(t, err)
	remote := sealedEntry(t, models.Entry{ID: "remote-1", Title: "from phone", UpdatedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)})

	gomock.InOrder(
		api.EXPECT().Push(ctx, gomock.Any()).Return(models.PushResponse{}, adapter.ErrPayloadTooLarge),
		api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(remote), nil),
	)

	require.NoError(t, c.engine.Sync(ctx))
	assert.Equal(t, 1, c.queueLen(t))

	completed := c.eventsOf(service.EventSyncComplete)
	require.Len(t, completed, 1)
	assert.Equal(t, []string{"remote-1"}, completed[0].ChangedIDs)
}

func TestSyncEngine_Sync_PushFailureStillPulls(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	_, err := c.entries.Create(ctx, "over quota", "", nil)
	require.NoError(t, err)

	gomock.InOrder(
		api.EXPECT().Push(ctx, gomock.Any()).Return(models.PushResponse{}, adapter.ErrQuotaExceeded),
		api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(), nil),
	)

	err = c.engine.Sync(ctx)
	require.ErrorIs(t, err, adapter.ErrQuotaExceeded)
	assert.Equal(t, 1, c.queueLen(t))
	assert.True(t, c.watermark(t).Equal(lastPage().ServerTimestamp))
	assert.Len(t, c.eventsOf(service.EventSyncError), 1)
}

// ── push batches ──────────────────────────────────────────────────────────────

func TestSplitPushBatches(t *testing.T) {
	lastPull := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	envelope := models.PushRequest{Changes: []models.SyncRecord{}, DeviceID: "dev-1", LastPullTimestamp: &lastPull}

	record := func(id string, payloadLen int) models.SyncRecord {
		return models.SyncRecord{ID: id, RecordType: models.RecordTypeEntry, EncryptedPayload: strings.Repeat("A", payloadLen)}
	}

	tests := []struct {
		name     string
		changes  []models.SyncRecord
		maxCount int
		maxBytes int
		want     []int
	}{
		{
			name:     "empty",
			maxCount: 100,
			maxBytes: 1000,
		},
		{
			name:     "count bound",
			changes:  []models.SyncRecord{record("a", 1), record("b", 1), record("c", 1), record("d", 1), record("e", 1)},
			maxCount: 2,
			maxBytes: 1 << 20,
			want:     []int{2, 2, 1},
		},
		{
			name:     "byte bound",
			changes:  []models.SyncRecord{record("a", 300), record("b", 300), record("c", 300), record("d", 300), record("e", 300)},
			maxCount: 100,
			maxBytes: 1000,
			want:     []int{2, 2, 1},
		},
		{
			name:     "oversized record alone",
			changes:  []models.SyncRecord{record("a", 300), record("b", 300), record("big", 2000), record("c", 300)},
			maxCount: 100,
			maxBytes: 1000,
			want:     []int{2, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := service.SplitPushBatches(tt.changes, envelope, tt.maxCount, tt.maxBytes)
			require.NoError(t, err)

			var (
				sizes []int
				flat  []models.SyncRecord
			)
			for _, batch := range batches {
				sizes = append(sizes, len(batch))
				flat = append(flat, batch...)

				if len(batch) > 1 {
					req := envelope
					req.Changes = batch
					body, err := json.Marshal(req)
					require.NoError(t, err)
					assert.LessOrEqual(t, len(body), tt.maxBytes)
				}
			}
			assert.Equal(t, tt.want, sizes)
			assert.Equal(t, tt.changes, flat)
		})
	}
}

// ── pull ──────────────────────────────────────────────────────────────────────

func TestSyncEngine_Pull_LastWriteWins(t *testing.T) {
	local := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		remoteAt    time.Time
		wantBody    string
		wantChanged bool
	}{
		{name: "newer remote wins", remoteAt: local.Add(time.Second), wantBody: "remote", wantChanged: true},
		{name: "equal timestamps keep local", remoteAt: local, wantBody: "local"},
		{name: "older remote is ignored", remoteAt: local.Add(-time.Second), wantBody: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := mock.NewMockSyncAPI(gomock.NewController(t))
			c := newTestClient(t, api)
			service.SetEntryClock(c.entries, func() time.Time { return local })

			entry, err := c.entries.Create(ctx, "title", "local", nil)
			require.NoError(t, err)

			remote := entry
			remote.Body = "remote"
			remote.UpdatedAt = tt.remoteAt
			api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(sealedEntry(t, remote)), nil)

			changed, err := c.engine.Pull(ctx)
			require.NoError(t, err)

			got, err := c.entries.Get(ctx, entry.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, got.Body)
			if tt.wantChanged {
				assert.Equal(t, []string{entry.ID}, changed)
			} else {
				assert.Empty(t, changed)
			}
		})
	}
}

func TestSyncEngine_Pull_EditWinsOverDelete(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	entry, err := c.entries.Create(ctx, "keep me", "pending edit", nil)
	require.NoError(t, err)

	tombstone := models.SyncRecord{ID: entry.ID, RecordType: models.RecordTypeEntry, IsTombstone: true}
	api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(tombstone), nil)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed)

	_, err = c.entries.Get(ctx, entry.ID)
	require.NoError(t, err, "local edit survives the remote delete")

	pending, err := c.storages.Queue.HasPending(ctx, models.RecordKey{Table: models.TableEntries, ID: entry.ID})
	require.NoError(t, err)
	assert.True(t, pending)

	conflicts := c.eventsOf(service.EventConflictResolved)
	require.Len(t, conflicts, 1)
	assert.Equal(t, service.ConflictDeleted, conflicts[0].Conflict.Type)
}

func TestSyncEngine_Pull_TombstoneDeletesLocalCopy(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	entry := models.Entry{ID: "remote-1", Title: "from server", Tags: []string{}, UpdatedAt: time.Now().UTC()}
	api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(sealedEntry(t, entry)), nil)
	_, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.queueLen(t))

	tombstone := models.SyncRecord{ID: entry.ID, RecordType: models.RecordTypeEntry, IsTombstone: true}
	api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(tombstone), nil)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{entry.ID}, changed)

	_, err = c.entries.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, service.ErrEntryNotFound)
	assert.Zero(t, c.queueLen(t), "applying a tombstone is not queued")

	conflicts := c.eventsOf(service.EventConflictResolved)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "from server", conflicts[0].Conflict.Title)
}

func TestSyncEngine_Pull_TombstoneForUnknownRecord(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	tombstone := models.SyncRecord{ID: "never-seen", RecordType: models.RecordTypeEntry, IsTombstone: true}
	api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(tombstone), nil)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, c.eventsOf(service.EventConflictResolved))
}

func TestSyncEngine_Pull_PagesAndWatermark(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 999999, time.UTC)
	t2 := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	e1 := models.Entry{ID: "e1", Title: "one", Tags: []string{}, UpdatedAt: t1}
	e2 := models.Entry{ID: "e2", Title: "two", Tags: []string{}, UpdatedAt: t2}

	var requests []models.PullRequest
	api.EXPECT().Pull(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PullRequest) (models.PullResponse, error) {
			requests = append(requests, req)
			if req.Cursor == "" {
				return models.PullResponse{Changes: []models.SyncRecord{sealedEntry(t, e1)}, HasMore: true, Cursor: "page-2", ServerTimestamp: t1}, nil
			}
			return models.PullResponse{Changes: []models.SyncRecord{sealedEntry(t, e2)}, ServerTimestamp: t2}, nil
		}).Times(2)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, changed)

	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.True(t, req.Since.Equal(time.Unix(0, 0)), "since is fixed for the whole loop")
	}
	assert.Equal(t, "page-2", requests[1].Cursor)
	assert.True(t, c.watermark(t).Equal(t2))

	// the watermark never moves backwards
	api.EXPECT().Pull(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PullRequest) (models.PullResponse, error) {
			assert.True(t, req.Since.Equal(t2))
			return models.PullResponse{ServerTimestamp: t1}, nil
		})

	_, err = c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.True(t, c.watermark(t).Equal(t2))
}

func TestSyncEngine_Pull_FailedPageKeepsEarlierWatermark(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	gomock.InOrder(
		api.EXPECT().Pull(ctx, gomock.Any()).Return(models.PullResponse{HasMore: true, Cursor: "next", ServerTimestamp: t1}, nil),
		api.EXPECT().Pull(ctx, gomock.Any()).Return(models.PullResponse{}, adapter.ErrServer),
	)

	_, err := c.engine.Pull(ctx)
	assert.ErrorIs(t, err, adapter.ErrServer)
	assert.True(t, c.watermark(t).Equal(t1))
}

func TestSyncEngine_Pull_SkipsUnknownRecordType(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	api.EXPECT().Pull(ctx, gomock.Any()).
		Return(lastPage(models.SyncRecord{ID: "x", RecordType: "photo", EncryptedPayload: "??"}), nil)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestSyncEngine_Pull_SettingsAlwaysApplied(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	doc, err := models.NewDocument(models.Setting{ID: "theme", Value: "dark"})
	require.NoError(t, err)
	require.NoError(t, c.storages.Records.Put(store.WithRemoteApply(ctx), models.TableSettings, doc))

	payload, err := crypto.SealPayload(models.Setting{ID: "theme", Value: "light"}, vaultKey())
	require.NoError(t, err)
	api.EXPECT().Pull(ctx, gomock.Any()).
		Return(lastPage(models.SyncRecord{ID: "theme", RecordType: models.RecordTypeSetting, EncryptedPayload: payload}), nil)

	changed, err := c.engine.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, changed)

	got, err := c.storages.Records.Get(ctx, models.TableSettings, "theme")
	require.NoError(t, err)
	var setting models.Setting
	require.NoError(t, got.Decode(&setting))
	assert.Equal(t, "light", setting.Value)
}

func TestSyncEngine_Sync_DecryptionFailure(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)
	c.setDeviceID(t, "dev-1")

	otherKey := make([]byte, 32)
	payload, err := crypto.SealPayload(models.Entry{ID: "x"}, otherKey)
	require.NoError(t, err)
	api.EXPECT().Pull(ctx, gomock.Any()).
		Return(lastPage(models.SyncRecord{ID: "x", RecordType: models.RecordTypeEntry, EncryptedPayload: payload}), nil)

	err = c.engine.Sync(ctx)
	require.ErrorIs(t, err, crypto.ErrDecryption)

	assert.Len(t, c.eventsOf(service.EventSyncStart), 1)
	failed := c.eventsOf(service.EventSyncError)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, crypto.ErrDecryption)
	assert.Empty(t, c.eventsOf(service.EventSyncComplete))
}

// ── initial sync / registration ──────────────────────────────────────────────

func TestSyncEngine_InitialSync(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	e1 := models.Entry{ID: "e1", Title: "one", Tags: []string{}, UpdatedAt: time.Now().UTC()}
	tombstone := models.SyncRecord{ID: "dead", RecordType: models.RecordTypeEntry, IsTombstone: true}

	gomock.InOrder(
		api.EXPECT().Pull(ctx, gomock.Any()).Return(models.PullResponse{
			Changes: []models.SyncRecord{sealedEntry(t, e1)}, HasMore: true, Cursor: "c", ServerTimestamp: time.Now().UTC(),
		}, nil),
		api.EXPECT().Pull(ctx, gomock.Any()).Return(lastPage(tombstone), nil),
	)

	require.NoError(t, c.engine.InitialSync(ctx))

	progress := c.eventsOf(service.EventInitialSyncProgress)
	require.Len(t, progress, 2)
	assert.Equal(t, 1, progress[0].Progress)
	assert.Equal(t, 1, progress[1].Progress)

	done, err := c.storages.Meta.GetMeta(ctx, models.MetaInitialSyncDone)
	require.NoError(t, err)
	assert.Equal(t, "true", done)

	// second run is a no-op: no further Pull expected
	require.NoError(t, c.engine.InitialSync(ctx))
}

func TestSyncEngine_RegisterDevice(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	api.EXPECT().RegisterDevice(ctx, "laptop").Return(models.RegisterDeviceResponse{DeviceID: "dev-42"}, nil)
	api.EXPECT().SetDeviceID("dev-42").Times(2)

	id, err := c.engine.RegisterDevice(ctx, "laptop")
	require.NoError(t, err)
	assert.Equal(t, "dev-42", id)

	id, err = c.engine.RegisterDevice(ctx, "laptop")
	require.NoError(t, err)
	assert.Equal(t, "dev-42", id, "registered once")
}

func TestSyncEngine_RegisterDevice_LimitReached(t *testing.T) {
	ctx := context.Background()
	api := mock.NewMockSyncAPI(gomock.NewController(t))
	c := newTestClient(t, api)

	api.EXPECT().RegisterDevice(ctx, "laptop").Return(models.RegisterDeviceResponse{}, adapter.ErrDeviceLimit)

	_, err := c.engine.RegisterDevice(ctx, "laptop")
	assert.ErrorIs(t, err, adapter.ErrDeviceLimit)

	_, err = c.storages.Meta.GetMeta(ctx, models.MetaDeviceID)
	assert.ErrorIs(t, err, store.ErrMetaNotFound)
}

func TestDedupeQueue(t *testing.T) {
	entries := []models.SyncQueueEntry{
		{SequenceID: 1, TableName: models.TableEntries, RecordID: "a"},
		{SequenceID: 2, TableName: models.TableEntries, RecordID: "b"},
		{SequenceID: 3, TableName: models.TableEntries, RecordID: "a"},
		{SequenceID: 4, TableName: models.TableSettings, RecordID: "a"},
	}

	got := service.DedupeQueue(entries)

	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].SequenceID)
	assert.Equal(t, int64(3), got[1].SequenceID)
	assert.Equal(t, int64(4), got[2].SequenceID)
}
