// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container shared by the
// sync server and the client agent. It is populated by merging values from
// environment variables, command-line flags, an optional JSON file and
// built-in defaults.
//
// Struct tags:
//   - envPrefix is the prefix applied to all nested env tag lookups (caarlos0/env).
//   - env is the direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token verification settings, the client's credentials and
	// the application version.
	App App `envPrefix:"APP_"`

	// Storage holds the database connection settings (postgres DSN on the
	// server, sqlite file path on the client).
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds listener, timeout, body-size and rate-limit settings.
	Server Server `envPrefix:"SERVER_"`

	// Sync holds server-side merge limits: quota, device count and tombstone
	// retention.
	Sync Sync `envPrefix:"SYNC_"`

	// Adapter holds the client's view of the sync server.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds client scheduling intervals.
	Workers Workers `envPrefix:"WORKERS_"`

	// Coordinator holds the profile directory shared by client agents that
	// elect a single sync leader.
	Coordinator Coordinator `envPrefix:"COORDINATOR_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Storage groups the configuration for the storage backend.
type Storage struct {
	// DB holds the relational database connection settings.
	DB DB `envPrefix:"DB_"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the HMAC key shared with the identity provider and used
	// to verify bearer tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the expected "iss" claim of bearer tokens.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// Version is the semantic version string exposed by /api/v1/health.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// AuthToken is the bearer token the client agent presents to the server.
	// Env: APP_AUTH_TOKEN
	AuthToken string `env:"AUTH_TOKEN"`

	// Passphrase unlocks (or sets up) the client's local vault.
	// Env: APP_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`

	// DeviceName is the label used when the client registers itself.
	// Env: APP_DEVICE_NAME
	DeviceName string `env:"DEVICE_NAME"`

	// LogFile is the client agent's log file path.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`

	// VaultSalt is the base64 key-derivation salt of an existing vault. A new
	// device needs it to derive the same key as the device that created the
	// vault; it is printed by the agent at vault setup.
	// Env: APP_VAULT_SALT
	VaultSalt string `env:"VAULT_SALT"`
}

// Server holds network and limit settings for the inbound HTTP API.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// MaxBodyBytes is the request body ceiling; larger bodies get 413.
	// Env: SERVER_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES"`

	// RateLimitPerMinute is the sustained request rate allowed per user and
	// per client IP.
	// Env: SERVER_RATE_LIMIT_PER_MINUTE
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE"`

	// RateLimitBurst is the token bucket size of the rate limiter.
	// Env: SERVER_RATE_LIMIT_BURST
	RateLimitBurst int `env:"RATE_LIMIT_BURST"`
}

// Sync holds server-side merge limits.
type Sync struct {
	// DefaultQuotaBytes is the storage quota given to newly provisioned users.
	// Env: SYNC_DEFAULT_QUOTA_BYTES
	DefaultQuotaBytes int64 `env:"DEFAULT_QUOTA_BYTES"`

	// MaxDevices is the number of devices a user may register.
	// Env: SYNC_MAX_DEVICES
	MaxDevices int `env:"MAX_DEVICES"`

	// TombstoneRetention is how long delete markers are kept.
	// Env: SYNC_TOMBSTONE_RETENTION
	TombstoneRetention time.Duration `env:"TOMBSTONE_RETENTION"`

	// TombstoneSchedule is the cron spec (with seconds) of the purge job.
	// Env: SYNC_TOMBSTONE_SCHEDULE
	TombstoneSchedule string `env:"TOMBSTONE_SCHEDULE"`
}

// DB holds connection settings for the database backend.
type DB struct {
	// DSN is the PostgreSQL connection string on the server and the sqlite
	// file path on the client.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds the client's outbound connection settings.
type Adapter struct {
	// HTTPAddress is the base URL of the sync server.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds client scheduling settings.
type Workers struct {
	// SyncInterval is the periodic sync period.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// DebounceDelay collapses bursts of local writes into one sync.
	// Env: WORKERS_DEBOUNCE_DELAY
	DebounceDelay time.Duration `env:"DEBOUNCE_DELAY"`

	// AutoLockAfter locks the vault after this much inactivity; zero
	// disables auto-lock.
	// Env: WORKERS_AUTO_LOCK_AFTER
	AutoLockAfter time.Duration `env:"AUTO_LOCK_AFTER"`
}

// Coordinator holds leader-election settings.
type Coordinator struct {
	// ProfileDir holds the leader lock file and the broadcast directory.
	// Env: COORDINATOR_PROFILE_DIR
	ProfileDir string `env:"PROFILE_DIR"`
}

// GetStructuredConfig loads, merges, and validates the server configuration.
// Sources are consulted in the following order; a field set by an earlier
// source is never overwritten by a later one:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
func GetStructuredConfig() (*StructuredConfig, error) {
	cfg, err := loadStructuredConfig()
	if err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func loadStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
