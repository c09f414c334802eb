package service

import (
	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/internal/store"
)

// ClientServices groups the services of the client agent.
type ClientServices struct {
	Events    *EventBus
	Vault     VaultService
	Entries   EntryService
	Engine    SyncEngine
	Scheduler SyncScheduler
}

func NewClientServices(
	storages *store.ClientStorages,
	api adapter.SyncAPI,
	sess *session.Session,
	cfg config.ClientWorkers,
	logger *logger.Logger,
) *ClientServices {
	events := NewEventBus()
	engine := NewSyncEngine(storages, api, sess, events, logger)

	return &ClientServices{
		Events:    events,
		Vault:     NewVaultService(storages.Records, crypto.NewKeyChainService(), sess, logger),
		Entries:   NewEntryService(storages.Records),
		Engine:    engine,
		Scheduler: NewSyncScheduler(engine, cfg, logger),
	}
}
