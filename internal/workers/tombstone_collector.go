// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/robfig/cron"
)

// purgeTimeout bounds one sweep so a stuck database cannot pile up runs.
const purgeTimeout = 5 * time.Minute

// tombstoneCollector deletes expired delete markers on a cron schedule.
// Schedules use six fields, seconds first; times are UTC.
type tombstoneCollector struct {
	tombstones service.TombstoneService
	cron       *cron.Cron

	// ctx is the Run context; sweeps started by cron derive from it.
	ctx context.Context
	now func() time.Time

	logger *logger.Logger
}

func newTombstoneCollector(tombstones service.TombstoneService, schedule string, logger *logger.Logger) (*tombstoneCollector, error) {
	c := &tombstoneCollector{
		tombstones: tombstones,
		cron:       cron.NewWithLocation(time.UTC),
		ctx:        context.Background(),
		now:        time.Now,
		logger:     logger,
	}

	if err := c.cron.AddFunc(schedule, c.purge); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *tombstoneCollector) Run(ctx context.Context) {
	c.ctx = ctx

	c.logger.Info().Msg("tombstone collector started")
	c.cron.Start()

	<-ctx.Done()

	c.cron.Stop()
	c.logger.Info().Msg("tombstone collector stopped")
}

func (c *tombstoneCollector) purge() {
	ctx, cancel := context.WithTimeout(c.ctx, purgeTimeout)
	defer cancel()

	if _, err := c.tombstones.PurgeExpired(ctx, c.now()); err != nil {
		c.logger.Err(err).Msg("tombstone purge failed")
	}
}
