package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
)

// Pull page size bounds.
const (
	DefaultPullLimit = 100
	MaxPullLimit     = 500
)

// mergeService is the concrete implementation of MergeService. It holds no
// per-user state; every push runs in a single transaction that locks the
// user row, so concurrent pushes of one user serialize on it.
type mergeService struct {
	records store.SyncRecordRepository

	logger *logger.Logger
}

// NewMergeService constructs a MergeService over the sync record repository.
func NewMergeService(records store.SyncRecordRepository, logger *logger.Logger) MergeService {
	return &mergeService{
		records: records,
		logger:  logger,
	}
}

// Push implements MergeService.
//
// For every change the current row is looked up inside the transaction:
//
//   - row updated after lastPullTimestamp → conflict, the server copy is
//     returned and the change is dropped;
//   - otherwise the change is staged with its size recomputed from the
//     payload actually received.
//
// The projected usage over staged changes is checked against the quota
// before anything is written, so a batch is either applied in full (minus
// conflicts) or not at all. Rows are stamped with the database clock read
// after the user lock is held.
func (s *mergeService) Push(ctx context.Context, userID string, req models.PushRequest) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	if req.LastPullTimestamp == nil {
		return models.PushResponse{}, ErrInvalidDataProvided
	}
	lastPull := req.LastPullTimestamp.UTC()

	changes := lastChangePerID(req.Changes)
	ids := make([]string, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
	}

	resp := models.PushResponse{Conflicts: []models.SyncRecord{}}

	err := s.records.RunInTx(ctx, func(tx store.SyncTx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		resp.ServerTimestamp = now

		existing, err := tx.FindRecords(ctx, userID, ids)
		if err != nil {
			return err
		}

		var (
			staged []models.StoredRecord
			delta  int64
		)
		for _, change := range changes {
			current, ok := existing[change.ID]
			if ok && current.UpdatedAt.After(lastPull) {
				resp.Conflicts = append(resp.Conflicts, current.SyncRecord)
				continue
			}

			rec := stageRecord(userID, req.DeviceID, change, now)
			delta += rec.PayloadSizeBytes - current.PayloadSizeBytes
			staged = append(staged, rec)
		}

		if projected := user.StorageUsedBytes + delta; delta > 0 && projected > user.StorageQuotaBytes {
			return &QuotaExceededError{Used: user.StorageUsedBytes, Quota: user.StorageQuotaBytes}
		}

		for _, rec := range staged {
			if _, err = tx.UpsertRecord(ctx, rec); err != nil {
				return err
			}
		}

		if err = tx.AdjustStorage(ctx, userID, delta); err != nil {
			return err
		}

		resp.Accepted = len(staged)
		return nil
	})
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			log.Warn().
				Str("user_id", userID).
				Int64("used", quotaErr.Used).
				Int64("quota", quotaErr.Quota).
				Int("changes", len(req.Changes)).
				Msg("push rejected: storage quota exceeded")
			return models.PushResponse{}, err
		}
		log.Err(err).Str("user_id", userID).Msg("push failed")
		return models.PushResponse{}, s.wrapStorageError("push", err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("device_id", req.DeviceID).
		Int("accepted", resp.Accepted).
		Int("conflicts", len(resp.Conflicts)).
		Msg("push merged")
	return resp, nil
}

// Pull implements MergeService.
//
// The page is read under a share lock on the user row, after any push
// holding it has committed. One row more than the limit is fetched to learn
// whether another page exists. The reported watermark differs per page:
//
//   - intermediate page: one microsecond before the last row's updated_at,
//     so a client that persists it and stops early re-reads that instant;
//   - final page: the database clock read once the lock was held.
func (s *mergeService) Pull(ctx context.Context, userID string, req models.PullRequest) (models.PullResponse, error) {
	limit := clampLimit(req.Limit)

	var after *models.PullCursor
	if req.Cursor != "" {
		cursor, err := decodeCursor(req.Cursor)
		if err != nil {
			return models.PullResponse{}, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
		after = &cursor
	}

	since := req.Since
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	var (
		rows      []models.StoredRecord
		serverNow time.Time
	)
	err := s.records.RunInTx(ctx, func(tx store.SyncTx) error {
		if err := tx.ShareLockUser(ctx, userID); err != nil {
			return err
		}

		var err error
		if serverNow, err = tx.Now(ctx); err != nil {
			return err
		}

		rows, err = tx.PullPage(ctx, userID, since.UTC(), after, limit+1)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("user_id", userID).Msg("pull failed")
		return models.PullResponse{}, s.wrapStorageError("pull", err)
	}

	resp := models.PullResponse{
		Changes:         make([]models.SyncRecord, 0, min(len(rows), limit)),
		HasMore:         len(rows) > limit,
		ServerTimestamp: serverNow,
	}
	if resp.HasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		resp.Changes = append(resp.Changes, row.SyncRecord)
	}

	if resp.HasMore {
		last := rows[len(rows)-1]
		resp.Cursor = encodeCursor(models.PullCursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
		resp.ServerTimestamp = last.UpdatedAt.Add(-time.Microsecond)
	}

	return resp, nil
}

// lastChangePerID keeps one change per id, the last one sent, at the
// position the id first appeared.
func lastChangePerID(changes []models.SyncRecord) []models.SyncRecord {
	index := make(map[string]int, len(changes))
	out := make([]models.SyncRecord, 0, len(changes))

	for _, change := range changes {
		if i, ok := index[change.ID]; ok {
			out[i] = change
			continue
		}
		index[change.ID] = len(out)
		out = append(out, change)
	}

	return out
}

func (s *mergeService) wrapStorageError(op string, err error) error {
	if s.records.IsRetryable(err) {
		return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func stageRecord(userID, deviceID string, change models.SyncRecord, now time.Time) models.StoredRecord {
	payload := change.EncryptedPayload
	if change.IsTombstone {
		payload = ""
	}

	return models.StoredRecord{
		SyncRecord: models.SyncRecord{
			ID:               change.ID,
			RecordType:       change.RecordType,
			EncryptedPayload: payload,
			IsTombstone:      change.IsTombstone,
			DeviceID:         deviceID,
			UpdatedAt:        now,
		},
		UserID:           userID,
		PayloadSizeBytes: int64(len(payload)),
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPullLimit
	case limit > MaxPullLimit:
		return MaxPullLimit
	default:
		return limit
	}
}
