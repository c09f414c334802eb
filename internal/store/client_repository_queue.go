package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

// NewQueueRepository constructs a [QueueRepository] on the sync_queue table.
func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

// Append stores entries in one transaction, so either all of them become
// durable or none does.
func (q *queueRepository) Append(ctx context.Context, entries ...models.SyncQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return q.inTx(ctx, "queueRepository.Append", func(tx *sql.Tx) error {
		for _, e := range entries {
			var payload sql.NullString
			if e.Payload != nil {
				payload = sql.NullString{String: *e.Payload, Valid: true}
			}

			_, err := tx.ExecContext(ctx, appendQueueEntry,
				e.TableName,
				e.RecordID,
				string(e.Operation),
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				payload,
			)
			if err != nil {
				logger.FromContext(ctx).Err(err).
					Str("func", "queueRepository.Append").
					Str("table", e.TableName).
					Str("record_id", e.RecordID).
					Msg("failed to append queue entry")
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		return nil
	})
}

func (q *queueRepository) List(ctx context.Context) ([]models.SyncQueueEntry, error) {
	rows, err := q.QueryContext(ctx, listQueueEntries)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "queueRepository.List").Msg("failed to read queue")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.SyncQueueEntry, 0, 16)
	for rows.Next() {
		var (
			e         models.SyncQueueEntry
			operation string
			timestamp string
			payload   sql.NullString
		)
		if err := rows.Scan(&e.SequenceID, &e.TableName, &e.RecordID, &operation, &timestamp, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		e.Operation = models.Operation(operation)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if payload.Valid {
			e.Payload = &payload.String
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func (q *queueRepository) HasPending(ctx context.Context, key models.RecordKey) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, countPendingForRecord, key.Table, key.ID).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return count > 0, nil
}

func (q *queueRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, countQueueEntries).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return count, nil
}

// Acknowledge implements [QueueRepository]. Entries appended after the push
// read the queue have a larger sequence id and are never touched.
func (q *queueRepository) Acknowledge(ctx context.Context, maxSequenceID int64, keep []models.RecordKey) error {
	if len(keep) == 0 {
		if _, err := q.ExecContext(ctx, deleteQueueUpTo, maxSequenceID); err != nil {
			logger.FromContext(ctx).Err(err).Str("func", "queueRepository.Acknowledge").Msg("failed to delete queue entries")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	}

	kept := make(map[models.RecordKey]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}

	entries, err := q.List(ctx)
	if err != nil {
		return err
	}

	return q.inTx(ctx, "queueRepository.Acknowledge", func(tx *sql.Tx) error {
		for _, e := range entries {
			if e.SequenceID > maxSequenceID {
				break
			}
			if _, ok := kept[e.Key()]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, deleteQueueEntry, e.SequenceID); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		return nil
	})
}
