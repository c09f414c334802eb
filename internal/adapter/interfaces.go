// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter is the client's transport to the sync server.
//
// [SyncAPI] decouples the sync engine from HTTP. The package ships a REST
// implementation ([NewHTTPSyncAPI]) over resty. Non-2xx responses are mapped
// by mapHTTPError onto the sentinel and typed errors in errors.go, so callers
// branch with [errors.Is] / [errors.As] and never look at status codes:
//
//	401, 403 → ErrUnauthorized
//	400      → ErrBadRequest
//	404      → ErrNotFound
//	409      → ErrDeviceLimit
//	413      → ErrPayloadTooLarge
//	429      → *RateLimitedError (wraps ErrRateLimited)
//	507      → *QuotaExceededError (wraps ErrQuotaExceeded)
//	5xx      → ErrServer
//
// A request that never produced a response wraps ErrNetwork.
package adapter

import (
	"context"

	"github.com/MKhiriev/reflog-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/sync_api_mock.go -package=mock

// SyncAPI is the client's view of the sync server. All calls are
// authenticated with the bearer token set via SetToken.
type SyncAPI interface {
	// SetToken stores the bearer token attached to every request.
	SetToken(token string)

	// SetDeviceID stores the device id sent as X-Device-ID so the server can
	// track when the device was last seen. Empty disables the header.
	SetDeviceID(deviceID string)

	// Push uploads a batch of local changes. Conflicts are part of the
	// response, not an error.
	Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// Pull fetches one page of changes updated after req.Since.
	Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error)

	// RegisterDevice registers this client and returns the assigned id.
	RegisterDevice(ctx context.Context, name string) (models.RegisterDeviceResponse, error)

	ListDevices(ctx context.Context) ([]models.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error

	// Usage reports storage usage and the record and device counts.
	Usage(ctx context.Context) (models.Usage, error)

	// Export downloads every record of the account, still encrypted.
	Export(ctx context.Context) (models.Export, error)

	// DeleteAccount removes the account with all devices and records.
	DeleteAccount(ctx context.Context) error
}
