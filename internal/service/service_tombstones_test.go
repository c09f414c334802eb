package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/mock"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTombstoneService_PurgeExpired(t *testing.T) {
	records := mock.NewMockSyncRecordRepository(gomock.NewController(t))
	svc := service.NewTombstoneService(records, config.Sync{TombstoneRetention: 90 * 24 * time.Hour}, logger.Nop())

	now := time.Date(2026, 4, 1, 3, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	wantCutoff := now.UTC().Add(-90 * 24 * time.Hour)

	records.EXPECT().PurgeTombstones(gomock.Any(), wantCutoff).Return(int64(4), nil)

	purged, err := svc.PurgeExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
}

func TestTombstoneService_PurgeExpiredError(t *testing.T) {
	records := mock.NewMockSyncRecordRepository(gomock.NewController(t))
	svc := service.NewTombstoneService(records, config.Sync{TombstoneRetention: time.Hour}, logger.Nop())

	dbErr := errors.New("connection reset")
	records.EXPECT().PurgeTombstones(gomock.Any(), gomock.Any()).Return(int64(0), dbErr)

	purged, err := svc.PurgeExpired(context.Background(), time.Now())
	require.ErrorIs(t, err, dbErr)
	assert.Zero(t, purged)
}

func TestTombstoneService_PurgeExpiredRetentionBoundary(t *testing.T) {
	const retention = 90 * 24 * time.Hour
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		updatedAt   time.Time
		isTombstone bool
		wantPurged  bool
	}{
		{name: "tombstone younger than retention", updatedAt: now.Add(-89 * 24 * time.Hour), isTombstone: true, wantPurged: false},
		{name: "tombstone exactly at retention", updatedAt: now.Add(-retention), isTombstone: true, wantPurged: false},
		{name: "tombstone just past retention", updatedAt: now.Add(-retention - time.Microsecond), isTombstone: true, wantPurged: true},
		{name: "ancient live record", updatedAt: now.Add(-400 * 24 * time.Hour), isTombstone: false, wantPurged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := mock.NewMockSyncRecordRepository(gomock.NewController(t))
			svc := service.NewTombstoneService(records, config.Sync{TombstoneRetention: retention}, logger.Nop())

			var purged int64
			records.EXPECT().PurgeTombstones(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, cutoff time.Time) (int64, error) {
					// same predicate as the DELETE: is_tombstone = true AND updated_at < cutoff
					if tt.isTombstone && tt.updatedAt.Before(cutoff) {
						purged++
					}
					return purged, nil
				})

			got, err := svc.PurgeExpired(context.Background(), now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPurged, got == 1)
		})
	}
}
