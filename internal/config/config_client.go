package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// ClientApp holds the client agent's credentials and identity.
type ClientApp struct {
	// AuthToken is the bearer token presented to the sync server.
	AuthToken string
	// Passphrase unlocks the local vault.
	Passphrase string
	// DeviceName is used when registering this device.
	DeviceName string
	// LogFile is where the agent writes its logs.
	LogFile string
	// Version is the agent version.
	Version string
	// VaultSalt is the base64 salt shared by every device of one vault.
	VaultSalt string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the sync server.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite database file path.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains client background scheduling settings.
type ClientWorkers struct {
	// SyncInterval defines how often the periodic sync runs.
	SyncInterval time.Duration
	// DebounceDelay is the quiet period after a local write before syncing.
	DebounceDelay time.Duration
	// AutoLockAfter is the idle period after which the vault locks.
	AutoLockAfter time.Duration
}

// ClientCoordinator contains leader-election settings.
type ClientCoordinator struct {
	// ProfileDir is shared by every agent using the same local vault.
	ProfileDir string
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App         ClientApp
	Adapter     ClientAdapter
	Storage     ClientStorage
	Workers     ClientWorkers
	Coordinator ClientCoordinator
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// When only the profile directory is given, the database and log file are
// placed inside it.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := loadStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return newClientConfig(cfg), nil
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			AuthToken:  cfg.App.AuthToken,
			Passphrase: cfg.App.Passphrase,
			DeviceName: cfg.App.DeviceName,
			LogFile:    cfg.App.LogFile,
			Version:    cfg.App.Version,
			VaultSalt:  cfg.App.VaultSalt,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: ClientWorkers{
			SyncInterval:  cfg.Workers.SyncInterval,
			DebounceDelay: cfg.Workers.DebounceDelay,
			AutoLockAfter: cfg.Workers.AutoLockAfter,
		},
		Coordinator: ClientCoordinator{
			ProfileDir: cfg.Coordinator.ProfileDir,
		},
	}

	if dir := clientCfg.Coordinator.ProfileDir; dir != "" {
		if clientCfg.Storage.DB.DSN == "" {
			clientCfg.Storage.DB.DSN = filepath.Join(dir, "reflog.db")
		}
		if clientCfg.App.LogFile == "" {
			clientCfg.App.LogFile = filepath.Join(dir, "logs", "agent.log")
		}
	}

	return clientCfg
}

// Validate checks the client view. It is exported so the agent can report
// configuration problems before opening any resources.
func (cfg *ClientConfig) Validate() error {
	return cfg.validate()
}
