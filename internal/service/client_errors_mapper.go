// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/adapter"
	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/session"
)

// SyncStatus is the one-word state shown by the client.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusOffline SyncStatus = "offline"
	StatusError   SyncStatus = "error"
	StatusLocked  SyncStatus = "locked"
)

// StatusForError maps a failed sync onto the status indicator. Transient
// failures read as offline; the next scheduled trigger retries them.
func StatusForError(err error) SyncStatus {
	switch {
	case err == nil:
		return StatusIdle
	case errors.Is(err, session.ErrVaultLocked):
		return StatusLocked
	case errors.Is(err, adapter.ErrNetwork),
		errors.Is(err, adapter.ErrServer),
		errors.Is(err, adapter.ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return StatusOffline
	default:
		return StatusError
	}
}

// DescribeSyncError turns a sync failure into a short user-facing hint.
func DescribeSyncError(err error) string {
	var (
		rateErr  *adapter.RateLimitedError
		quotaErr *adapter.QuotaExceededError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, crypto.ErrDecryption):
		return "synced data could not be decrypted; lock and unlock the vault"
	case errors.Is(err, session.ErrVaultLocked):
		return "vault is locked"
	case errors.Is(err, adapter.ErrUnauthorized):
		return "authentication expired; sign in again"
	case errors.As(err, &quotaErr):
		return fmt.Sprintf("storage quota exceeded (%d of %d bytes); delete entries to free space", quotaErr.Used, quotaErr.Quota)
	case errors.As(err, &rateErr):
		return fmt.Sprintf("rate limited; retrying in %s", rateErr.RetryAfter)
	case errors.Is(err, adapter.ErrPayloadTooLarge), errors.Is(err, adapter.ErrBadRequest):
		return "a local change was rejected by the server"
	case errors.Is(err, adapter.ErrDeviceLimit):
		return "device limit reached; remove a device first"
	case StatusForError(err) == StatusOffline:
		return "server unreachable; working offline"
	default:
		return err.Error()
	}
}
