package store

import (
	"time"

	"github.com/MKhiriev/reflog-sync/models"
	sq "github.com/Masterminds/squirrel"
)

const (
	ensureUser = `
		INSERT INTO users (id, storage_quota_bytes)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, storage_used_bytes, storage_quota_bytes, created_at;`

	lockUser = `
		SELECT id, storage_used_bytes, storage_quota_bytes, created_at
		FROM users
		WHERE id = $1
		FOR UPDATE;`

	shareLockUser = `
		SELECT id
		FROM users
		WHERE id = $1
		FOR SHARE;`

	currentTimestamp = `SELECT clock_timestamp();`

	getUsage = `
		SELECT u.storage_used_bytes,
		       u.storage_quota_bytes,
		       (SELECT COUNT(*) FROM sync_records r WHERE r.user_id = u.id),
		       (SELECT COUNT(*) FROM devices d WHERE d.user_id = u.id)
		FROM users u
		WHERE u.id = $1;`

	deleteUser = `DELETE FROM users WHERE id = $1;`

	adjustStorage = `
		UPDATE users
		SET storage_used_bytes = storage_used_bytes + $1
		WHERE id = $2;`

	countDevices = `SELECT COUNT(*) FROM devices WHERE user_id = $1;`

	createDevice = `
		INSERT INTO devices (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING registered_at;`

	listDevices = `
		SELECT id, user_id, name, registered_at, last_seen_at
		FROM devices
		WHERE user_id = $1
		ORDER BY registered_at;`

	deleteDevice = `DELETE FROM devices WHERE id = $1 AND user_id = $2;`

	touchDevice = `
		UPDATE devices
		SET last_seen_at = $1
		WHERE id = $2 AND user_id = $3;`

	upsertSyncRecord = `
		INSERT INTO sync_records (
			user_id,
			id,
			record_type,
			encrypted_payload,
			is_tombstone,
			device_id,
			payload_size_bytes,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, id) DO UPDATE SET
			record_type        = EXCLUDED.record_type,
			encrypted_payload  = EXCLUDED.encrypted_payload,
			is_tombstone       = EXCLUDED.is_tombstone,
			device_id          = EXCLUDED.device_id,
			payload_size_bytes = EXCLUDED.payload_size_bytes,
			version            = sync_records.version + 1,
			updated_at         = EXCLUDED.updated_at
		RETURNING version, created_at, updated_at;`
)

// syncRecordColumns is the column order scanned by scanStoredRecord.
var syncRecordColumns = []string{
	"user_id",
	"id",
	"record_type",
	"encrypted_payload",
	"is_tombstone",
	"device_id",
	"version",
	"payload_size_bytes",
	"created_at",
	"updated_at",
}

// buildPullPageQuery selects one keyset page of a user's records. The cursor
// condition is a row comparison so postgres can range-scan
// sync_records_pull_idx.
func buildPullPageQuery(userID string, since time.Time, after *models.PullCursor, limit int) (string, []any, error) {
	builder := psql.Select(syncRecordColumns...).
		From("sync_records").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"updated_at": since})
	if after != nil {
		builder = builder.Where(sq.Expr("(updated_at, id) > (?, ?)", after.UpdatedAt, after.ID))
	}

	return builder.
		OrderBy("updated_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
}

// buildFindRecordsForUpdateQuery locks the current rows of ids for the rest of
// the push transaction.
func buildFindRecordsForUpdateQuery(userID string, ids []string) (string, []any, error) {
	return psql.Select(syncRecordColumns...).
		From("sync_records").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"id": ids}).
		Suffix("FOR UPDATE").
		ToSql()
}

func buildExportQuery(userID string) (string, []any, error) {
	return psql.Select(syncRecordColumns...).
		From("sync_records").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at ASC", "id ASC").
		ToSql()
}

func buildPurgeTombstonesQuery(olderThan time.Time) (string, []any, error) {
	return psql.Delete("sync_records").
		Where(sq.Eq{"is_tombstone": true}).
		Where(sq.Lt{"updated_at": olderThan}).
		ToSql()
}
