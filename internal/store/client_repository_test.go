package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func newTestClientStorages(t *testing.T) (*ClientStorages, *session.Session, *int) {
	t.Helper()

	db, err := NewConnectSQLite(context.Background(), config.ClientDB{DSN: filepath.Join(t.TempDir(), "client.db")}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sess := session.New()
	sess.Unlock(testKey())

	changes := 0
	return newClientStorages(db, sess, func() { changes++ }, logger.Nop()), sess, &changes
}

func entryDoc(t *testing.T, id, body string, updatedAt time.Time) models.Document {
	t.Helper()
	doc, err := models.NewDocument(models.Entry{
		ID:        id,
		Title:     "title " + id,
		Body:      body,
		Tags:      []string{"a", "b"},
		Status:    models.EntryStatusDraft,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	})
	require.NoError(t, err)
	return doc
}

func rawRecord(t *testing.T, s *ClientStorages, table, id string) models.Document {
	t.Helper()
	doc, err := NewSQLiteRepository(s.db, logger.Nop()).Get(context.Background(), table, id)
	require.NoError(t, err)
	return doc
}

// ── encryption decorator ──────────────────────────────────────────────────────

func TestEncryptedRepository_NoPlaintextAtRest(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "hello", time.Now())))

	raw := rawRecord(t, s, models.TableEntries, "e1")
	for _, field := range EncryptedFields[models.TableEntries] {
		_, ok := asEncryptedField(raw[field])
		assert.True(t, ok, "field %s stored in clear", field)
	}
	assert.NotContains(t, string(raw["body"]), "hello")

	got, err := s.Records.Get(ctx, models.TableEntries, "e1")
	require.NoError(t, err)
	var entry models.Entry
	require.NoError(t, got.Decode(&entry))
	assert.Equal(t, "hello", entry.Body)
	assert.Equal(t, []string{"a", "b"}, entry.Tags)
}

func TestEncryptedRepository_PassesThroughUnencryptedRows(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	legacy := entryDoc(t, "old", "plain body", time.Now())
	require.NoError(t, NewSQLiteRepository(s.db, logger.Nop()).Put(ctx, models.TableEntries, legacy))

	got, err := s.Records.Get(ctx, models.TableEntries, "old")
	require.NoError(t, err)
	assert.JSONEq(t, `"plain body"`, string(got["body"]))
}

func TestEncryptedRepository_LockedWriteFails(t *testing.T) {
	s, sess, _ := newTestClientStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "x", time.Now())))
	sess.Lock()

	err := s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e2", "y", time.Now()))
	assert.ErrorIs(t, err, session.ErrVaultLocked)

	err = NewEncryptedRepository(NewSQLiteRepository(s.db, logger.Nop()), sess).
		Put(ctx, models.TableEntries, entryDoc(t, "e3", "z", time.Now()))
	assert.ErrorIs(t, err, session.ErrVaultLocked)

	_, err = s.Records.Get(ctx, models.TableEntries, "e1")
	assert.ErrorIs(t, err, session.ErrVaultLocked)
}

func TestEncryptedRepository_WrongKeyFailsDistinctly(t *testing.T) {
	s, sess, _ := newTestClientStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "x", time.Now())))
	other := testKey()
	other[0] ^= 0xff
	sess.Unlock(other)

	_, err := s.Records.Get(ctx, models.TableEntries, "e1")
	assert.ErrorIs(t, err, crypto.ErrDecryption)
}

// ── change tracking decorator ─────────────────────────────────────────────────

func TestTrackingRepository_QueuesSealedSnapshots(t *testing.T) {
	s, _, changes := newTestClientStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "v1", time.Now())))
	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "v2", time.Now())))
	require.NoError(t, s.Records.Delete(ctx, models.TableEntries, "e1"))

	entries, err := s.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, *changes)

	assert.Equal(t, models.OperationCreate, entries[0].Operation)
	assert.Equal(t, models.OperationUpdate, entries[1].Operation)
	assert.Equal(t, models.OperationDelete, entries[2].Operation)
	assert.Nil(t, entries[2].Payload)
	assert.Less(t, entries[0].SequenceID, entries[1].SequenceID)

	require.NotNil(t, entries[1].Payload)

	var snapshot models.Entry
	require.NoError(t, crypto.OpenPayload(*entries[1].Payload, testKey(), &snapshot))
	assert.Equal(t, "v2", snapshot.Body)
}

func TestTrackingRepository_RemoteApplyIsNotQueued(t *testing.T) {
	s, _, changes := newTestClientStorages(t)
	ctx := WithRemoteApply(context.Background())

	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "e1", "remote", time.Now())))
	require.NoError(t, s.Records.Delete(ctx, models.TableEntries, "e1"))

	count, err := s.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, *changes)
}

func TestTrackingRepository_UnsyncedTableIsNotQueued(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	doc := models.Document{"id": json.RawMessage(`"draft-ui"`)}
	require.NoError(t, s.Records.Put(ctx, "ui_state", doc))

	count, err := s.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTrackingRepository_RejectsDocumentWithoutID(t *testing.T) {
	s, _, _ := newTestClientStorages(t)

	err := s.Records.Put(context.Background(), models.TableEntries, models.Document{"body": json.RawMessage(`"x"`)})
	assert.ErrorIs(t, err, ErrEncodingDocument)

	count, err := s.Queue.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// ── queue and meta ────────────────────────────────────────────────────────────

func TestQueue_AcknowledgeKeepsConflictsAndLaterEntries(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, id, id, time.Now())))
	}
	read, err := s.Queue.List(ctx)
	require.NoError(t, err)
	maxRead := read[len(read)-1].SequenceID

	// appended while the push was in flight
	require.NoError(t, s.Records.Put(ctx, models.TableEntries, entryDoc(t, "a", "a2", time.Now())))

	require.NoError(t, s.Queue.Acknowledge(ctx, maxRead, []models.RecordKey{{Table: models.TableEntries, ID: "b"}}))

	left, err := s.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].RecordID)
	assert.Equal(t, "a", left[1].RecordID)
	assert.Greater(t, left[1].SequenceID, maxRead)

	pending, err := s.Queue.HasPending(ctx, models.RecordKey{Table: models.TableEntries, ID: "c"})
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestMeta_GetSet(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	_, err := s.Meta.GetMeta(ctx, models.MetaDeviceID)
	assert.ErrorIs(t, err, ErrMetaNotFound)

	require.NoError(t, s.Meta.SetMeta(ctx, models.MetaDeviceID, "dev-1"))
	require.NoError(t, s.Meta.SetMeta(ctx, models.MetaDeviceID, "dev-2"))

	v, err := s.Meta.GetMeta(ctx, models.MetaDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "dev-2", v)
}

func TestSQLiteRepository_QueryAndDelete(t *testing.T) {
	s, _, _ := newTestClientStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Records.Put(ctx, models.TableEntries,
		entryDoc(t, "b", "2", time.Now()),
		entryDoc(t, "a", "1", time.Now()),
	))

	docs, err := s.Records.Query(ctx, models.TableEntries)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID())

	require.NoError(t, s.Records.Delete(ctx, models.TableEntries, "a"))
	_, err = s.Records.Get(ctx, models.TableEntries, "a")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
