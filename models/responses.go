// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Error codes written into [ErrorResponse.Error].
const (
	ErrorCodeBadRequest      = "bad_request"
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeDeviceLimit     = "device_limit_reached"
	ErrorCodePayloadTooLarge = "payload_too_large"
	ErrorCodeRateLimited     = "rate_limited"
	ErrorCodeQuotaExceeded   = "storage_quota_exceeded"
	ErrorCodeUnavailable     = "service_unavailable"
	ErrorCodeInternal        = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// QuotaExceededResponse is the 507 body of a rejected push.
type QuotaExceededResponse struct {
	ErrorResponse

	StorageUsedBytes  int64 `json:"storageUsedBytes"`
	StorageQuotaBytes int64 `json:"storageQuotaBytes"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
