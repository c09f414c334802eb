package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
)

const (
	defaultSyncInterval  = 60 * time.Second
	defaultDebounceDelay = 2 * time.Second
)

type syncScheduler struct {
	engine   SyncEngine
	interval time.Duration
	debounce time.Duration
	logger   *logger.Logger

	mu        sync.Mutex
	runCtx    context.Context
	cancel    context.CancelFunc
	debounced *time.Timer
	wg        sync.WaitGroup

	foreground atomic.Bool
	inFlight   atomic.Bool
	// backoffUntil holds unix nanos before which triggers are dropped after
	// the server answered 429.
	backoffUntil atomic.Int64

	now func() time.Time
}

// NewSyncScheduler creates a scheduler that drives engine.Sync. It is idle
// until Start is called. Zero durations in cfg fall back to 60s and 2s.
func NewSyncScheduler(engine SyncEngine, cfg config.ClientWorkers, logger *logger.Logger) SyncScheduler {
	s := &syncScheduler{
		engine:   engine,
		interval: cfg.SyncInterval,
		debounce: cfg.DebounceDelay,
		logger:   logger,
		now:      time.Now,
	}
	if s.interval <= 0 {
		s.interval = defaultSyncInterval
	}
	if s.debounce <= 0 {
		s.debounce = defaultDebounceDelay
	}
	s.foreground.Store(true)
	return s
}

// Start implements SyncScheduler. It stops any previously running loop,
// then launches a goroutine that syncs every interval while in the
// foreground, and triggers one sync immediately.
func (s *syncScheduler) Start(ctx context.Context) {
	s.Stop()

	s.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	s.runCtx = context.WithoutCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				if !s.foreground.Load() {
					continue
				}
				s.TriggerSync()
			}
		}
	}()

	s.TriggerSync()
}

// Stop implements SyncScheduler. It cancels the periodic loop and a pending
// debounced sync, and blocks until the loop goroutine exits. A sync already
// running keeps its own context. Safe to call when the scheduler is not
// running.
func (s *syncScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runCtx = nil
	if s.debounced != nil {
		s.debounced.Stop()
		s.debounced = nil
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *syncScheduler) RequestSync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx == nil {
		return
	}
	if s.debounced != nil {
		s.debounced.Stop()
	}
	s.debounced = time.AfterFunc(s.debounce, s.TriggerSync)
}

func (s *syncScheduler) TriggerSync() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	if ctx == nil {
		return
	}
	go s.runOnce(ctx)
}

func (s *syncScheduler) SetForeground(foreground bool) {
	wasForeground := s.foreground.Swap(foreground)
	if foreground && !wasForeground {
		s.TriggerSync()
	}
}

func (s *syncScheduler) NetworkReconnected() {
	s.TriggerSync()
}

// runOnce runs one sync cycle unless another is in flight or the server
// asked us to back off. Dropped calls are not queued; the next trigger
// retries.
func (s *syncScheduler) runOnce(ctx context.Context) {
	if s.now().UnixNano() < s.backoffUntil.Load() {
		s.logger.Debug().Msg("sync skipped: rate limited")
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("sync skipped: already in flight")
		return
	}
	defer s.inFlight.Store(false)

	err := s.engine.Sync(ctx)

	var rateErr *adapter.RateLimitedError
	if errors.As(err, &rateErr) {
		s.backoffUntil.Store(s.now().Add(rateErr.RetryAfter).UnixNano())
		s.logger.Warn().Dur("retry_after", rateErr.RetryAfter).Msg("sync rate limited, backing off")
	}
}
