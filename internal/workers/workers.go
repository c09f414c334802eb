package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/service"
)

type Workers struct {
	workers []Worker
}

func NewWorkers(services *service.Services, cfg config.Sync, logger *logger.Logger) (*Workers, error) {
	collector, err := newTombstoneCollector(services.TombstoneService, cfg.TombstoneSchedule, logger)
	if err != nil {
		return nil, fmt.Errorf("tombstone collector: %w", err)
	}

	return &Workers{workers: []Worker{collector}}, nil
}

// Run starts every worker and returns once all of them have stopped.
func (w *Workers) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, worker := range w.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}
	wg.Wait()
}
