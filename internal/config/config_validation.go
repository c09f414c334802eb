// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/base64"
	"strings"

	"github.com/robfig/cron"
)

// validate checks the settings the sync server cannot start without.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.MaxBodyBytes <= 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.Sync.MaxDevices <= 0 || cfg.Sync.DefaultQuotaBytes <= 0 || cfg.Sync.TombstoneRetention <= 0 {
		return ErrInvalidSyncConfigs
	}

	if _, err := cron.Parse(cfg.Sync.TombstoneSchedule); err != nil {
		return ErrInvalidSyncConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.DebounceDelay <= 0 || cfg.Workers.AutoLockAfter < 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.App.AuthToken == "" || cfg.App.Passphrase == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.App.VaultSalt != "" {
		if _, err := base64.StdEncoding.DecodeString(cfg.App.VaultSalt); err != nil {
			return ErrInvalidAppConfigs
		}
	}

	if cfg.Coordinator.ProfileDir == "" {
		return ErrInvalidCoordinatorConfigs
	}

	return nil
}
