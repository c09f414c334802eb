package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/app"
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/coordinator"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/tui"
)

type App struct {
	cfg *config.ClientConfig

	session  *session.Session
	storages *store.ClientStorages
	services *service.ClientServices
	coord    Coordinator
	status   *tui.StatusLine
	out      io.Writer

	// mu guards the leadership state below.
	mu       sync.Mutex
	leading  bool
	syncing  bool
	autoLock *time.Timer

	// leaders tracks lead goroutines so close waits for them before the
	// store is closed.
	leaders sync.WaitGroup

	logger *logger.Logger
}

// NewApp opens the local store and wires the agent. out receives the status
// line and the few messages meant for the user.
func NewApp(ctx context.Context, cfg *config.ClientConfig, out io.Writer, logger *logger.Logger) (*App, error) {
	api, err := adapter.NewHTTPSyncAPI(cfg.Adapter, logger)
	if err != nil {
		return nil, fmt.Errorf("create sync api: %w", err)
	}

	coord, err := coordinator.New(cfg.Coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	return newApp(ctx, cfg, api, coord, out, logger)
}

func newApp(ctx context.Context, cfg *config.ClientConfig, api adapter.SyncAPI, coord Coordinator, out io.Writer, logger *logger.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		session: session.New(),
		coord:   coord,
		status:  tui.NewStatusLine(out),
		out:     out,
		logger:  logger,
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, a.session, a.onLocalChange, logger)
	if err != nil {
		coord.Close()
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	a.storages = storages

	api.SetToken(cfg.App.AuthToken)
	a.services = service.NewClientServices(storages, api, a.session, cfg.Workers, logger)

	return a, nil
}

// Run unlocks the vault and takes part in leader election until ctx is done,
// a termination signal arrives or the vault locks.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.unlock(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.session.OnLock(func() {
		// the agent is already shutting down
		if ctx.Err() != nil {
			return
		}
		a.stopSyncing()
		a.status.SetStatus(service.StatusLocked, app.MsgAutoLocked)
		cancel()
	})
	a.resetAutoLock()

	unsubscribeEvents := a.services.Events.Subscribe(a.onSyncEvent)
	defer unsubscribeEvents()

	unsubscribeMessages := a.coord.Subscribe(a.onMessage)
	defer unsubscribeMessages()

	err := a.coord.Run(ctx, func() { a.onElected(ctx) }, a.onDemoted)
	if err != nil && !errors.Is(err, coordinator.ErrClosed) {
		return fmt.Errorf("leader election: %w", err)
	}

	return nil
}

func (a *App) unlock(ctx context.Context) error {
	vault := a.services.Vault

	setUp, err := vault.IsSetUp(ctx)
	if err != nil {
		return fmt.Errorf("read vault: %w", err)
	}

	if setUp {
		err = vault.Unlock(ctx, a.cfg.App.Passphrase)
		if errors.Is(err, crypto.ErrWrongPassphrase) {
			return errors.New(app.MsgWrongPassphrase)
		}
		return err
	}

	var salt []byte
	if a.cfg.App.VaultSalt != "" {
		if salt, err = base64.StdEncoding.DecodeString(a.cfg.App.VaultSalt); err != nil {
			return fmt.Errorf("decode vault salt: %w", err)
		}
	}

	salt, err = vault.Setup(ctx, a.cfg.App.Passphrase, salt)
	if err != nil {
		return fmt.Errorf("set up vault: %w", err)
	}

	if a.cfg.App.VaultSalt == "" {
		fmt.Fprintf(a.out, app.MsgVaultCreated, base64.StdEncoding.EncodeToString(salt))
	} else {
		fmt.Fprint(a.out, app.MsgVaultJoined)
	}
	return nil
}

// ── leadership ───────────────────────────────────────────────────────────────

func (a *App) onElected(ctx context.Context) {
	a.mu.Lock()
	a.leading = true
	a.mu.Unlock()

	// network calls must not block the election loop
	a.leaders.Add(1)
	go func() {
		defer a.leaders.Done()
		a.lead(ctx)
	}()
}

// lead prepares the device and starts the scheduler, unless leadership was
// lost in the meantime.
func (a *App) lead(ctx context.Context) {
	engine := a.services.Engine

	if _, err := engine.RegisterDevice(ctx, a.cfg.App.DeviceName); err != nil {
		a.logger.Warn().Err(err).Msg("device registration failed")
		a.status.SetStatus(service.StatusForError(err), fmt.Sprintf(app.MsgRegisterFailed, service.DescribeSyncError(err)))
	} else if err = engine.InitialSync(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("initial sync failed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.leading || a.syncing || ctx.Err() != nil {
		return
	}
	a.services.Scheduler.Start(ctx)
	a.syncing = true
}

func (a *App) onDemoted() {
	a.mu.Lock()
	a.leading = false
	a.mu.Unlock()

	a.stopSyncing()
}

func (a *App) stopSyncing() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.syncing {
		a.services.Scheduler.Stop()
		a.syncing = false
	}
}

func (a *App) isLeading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leading
}

// ── notifications ────────────────────────────────────────────────────────────

// onLocalChange runs after every tracked local write. The leader schedules a
// sync itself; a follower asks the leader to.
func (a *App) onLocalChange() {
	a.resetAutoLock()

	if a.isLeading() {
		a.services.Scheduler.RequestSync()
		return
	}
	if err := a.coord.RequestSync(); err != nil {
		a.logger.Warn().Err(err).Msg("forward sync request")
	}
}

func (a *App) onSyncEvent(e service.Event) {
	a.status.Handle(e)

	if e.Type != service.EventSyncComplete || !a.isLeading() {
		return
	}
	if err := a.coord.BroadcastSyncComplete(e.ChangedIDs); err != nil {
		a.logger.Warn().Err(err).Msg("broadcast sync result")
	}
}

func (a *App) onMessage(msg coordinator.Message) {
	switch msg.Type {
	case coordinator.MessageSyncRequested:
		if a.isLeading() {
			a.services.Scheduler.RequestSync()
		}
	case coordinator.MessageSyncComplete:
		if !a.isLeading() {
			a.status.Handle(service.Event{Type: service.EventSyncComplete, ChangedIDs: msg.ChangedIDs})
		}
	}
}

// ── lifecycle ────────────────────────────────────────────────────────────────

// resetAutoLock restarts the inactivity timer. A zero AutoLockAfter disables
// auto-lock.
func (a *App) resetAutoLock() {
	after := a.cfg.Workers.AutoLockAfter
	if after <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.autoLock == nil {
		a.autoLock = time.AfterFunc(after, a.session.Lock)
		return
	}
	a.autoLock.Reset(after)
}

func (a *App) close() {
	a.mu.Lock()
	if a.autoLock != nil {
		a.autoLock.Stop()
	}
	a.mu.Unlock()

	a.leaders.Wait()
	a.stopSyncing()
	a.session.Lock()

	if err := a.coord.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close coordinator")
	}
	if err := a.storages.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close local storage")
	}
}
