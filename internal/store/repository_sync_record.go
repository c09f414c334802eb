// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
)

// syncRecordRepository is the PostgreSQL-backed implementation of
// [SyncRecordRepository]. The server never decodes payloads; it stores the
// opaque blob together with the columns it needs for conflict detection,
// quota accounting and keyset pagination.
type syncRecordRepository struct {
	*DB
	logger *logger.Logger
}

// NewSyncRecordRepository constructs a [SyncRecordRepository] backed by db.
func NewSyncRecordRepository(db *DB, logger *logger.Logger) SyncRecordRepository {
	return &syncRecordRepository{
		DB:     db,
		logger: logger,
	}
}

// RunInTx implements [SyncRecordRepository].
func (p *syncRecordRepository) RunInTx(ctx context.Context, fn func(tx SyncTx) error) error {
	return p.inTx(ctx, "syncRecordRepository.RunInTx", func(tx *sql.Tx) error {
		return fn(&syncTx{tx: tx})
	})
}

// ExportRecords implements [SyncRecordRepository].
func (p *syncRecordRepository) ExportRecords(ctx context.Context, userID string) ([]models.SyncRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildExportQuery(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := p.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncRecordRepository.ExportRecords").
			Str("user_id", userID).
			Msg("failed to execute export query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	stored, err := scanStoredRecords(rows, 64)
	if err != nil {
		return nil, err
	}

	records := make([]models.SyncRecord, 0, len(stored))
	for _, rec := range stored {
		records = append(records, rec.SyncRecord)
	}

	return records, nil
}

// PurgeTombstones implements [SyncRecordRepository]. Tombstones carry no
// payload, so removing them leaves storage_used_bytes unchanged.
func (p *syncRecordRepository) PurgeTombstones(ctx context.Context, olderThan time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildPurgeTombstonesQuery(olderThan)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := p.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "syncRecordRepository.PurgeTombstones").Msg("failed to purge tombstones")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return purged, nil
}

// syncTx implements [SyncTx] on top of an open *sql.Tx.
type syncTx struct {
	tx *sql.Tx
}

func (t *syncTx) LockUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := t.tx.QueryRowContext(ctx, lockUser, userID).
		Scan(&user.ID, &user.StorageUsedBytes, &user.StorageQuotaBytes, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "syncTx.LockUser").Str("user_id", userID).Msg("failed to lock user")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return user, nil
}

func (t *syncTx) ShareLockUser(ctx context.Context, userID string) error {
	var id string
	err := t.tx.QueryRowContext(ctx, shareLockUser, userID).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.FromContext(ctx).Err(err).Str("func", "syncTx.ShareLockUser").Str("user_id", userID).Msg("failed to share-lock user")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// Now reads clock_timestamp(), which unlike now() advances within a
// transaction.
func (t *syncTx) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := t.tx.QueryRowContext(ctx, currentTimestamp).Scan(&now); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "syncTx.Now").Msg("failed to read database clock")
		return time.Time{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return now.UTC(), nil
}

func (t *syncTx) PullPage(ctx context.Context, userID string, since time.Time, after *models.PullCursor, limit int) ([]models.StoredRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildPullPageQuery(userID, since, after, limit)
	if err != nil {
		log.Err(err).Str("func", "syncTx.PullPage").Msg("failed to build pull query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncTx.PullPage").
			Str("user_id", userID).
			Msg("failed to execute pull query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return scanStoredRecords(rows, limit)
}

func (t *syncTx) FindRecords(ctx context.Context, userID string, ids []string) (map[string]models.StoredRecord, error) {
	found := make(map[string]models.StoredRecord, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query, args, err := buildFindRecordsForUpdateQuery(userID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "syncTx.FindRecords").
			Str("user_id", userID).
			Int("ids", len(ids)).
			Msg("failed to read current records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records, err := scanStoredRecords(rows, len(ids))
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		found[rec.ID] = rec
	}

	return found, nil
}

func (t *syncTx) UpsertRecord(ctx context.Context, rec models.StoredRecord) (models.StoredRecord, error) {
	err := t.tx.QueryRowContext(ctx, upsertSyncRecord,
		rec.UserID,
		rec.ID,
		rec.RecordType,
		rec.EncryptedPayload,
		rec.IsTombstone,
		rec.DeviceID,
		rec.PayloadSizeBytes,
		rec.UpdatedAt,
	).Scan(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "syncTx.UpsertRecord").
			Str("record_id", rec.ID).
			Msg("failed to upsert record")
		return models.StoredRecord{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return rec, nil
}

func (t *syncTx) AdjustStorage(ctx context.Context, userID string, delta int64) error {
	if delta == 0 {
		return nil
	}

	res, err := t.tx.ExecContext(ctx, adjustStorage, delta, userID)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "syncTx.AdjustStorage").
			Str("user_id", userID).
			Int64("delta", delta).
			Msg("failed to adjust storage usage")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanStoredRecords(rows *sql.Rows, capacity int) ([]models.StoredRecord, error) {
	records := make([]models.StoredRecord, 0, capacity)

	for rows.Next() {
		var rec models.StoredRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.ID,
			&rec.RecordType,
			&rec.EncryptedPayload,
			&rec.IsTombstone,
			&rec.DeviceID,
			&rec.Version,
			&rec.PayloadSizeBytes,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return records, nil
}
