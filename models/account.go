// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// User is the server-side account. Identity itself is owned by the external
// auth provider; ID is the token subject.
type User struct {
	ID                string    `json:"id"`
	StorageUsedBytes  int64     `json:"storageUsedBytes"`
	StorageQuotaBytes int64     `json:"storageQuotaBytes"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Usage is returned by GET /api/v1/account/usage.
type Usage struct {
	StorageUsedBytes  int64 `json:"storageUsedBytes"`
	StorageQuotaBytes int64 `json:"storageQuotaBytes"`
	RecordCount       int64 `json:"recordCount"`
	DeviceCount       int64 `json:"deviceCount"`
}

// Export holds every record of a user, still encrypted.
type Export struct {
	Records    []SyncRecord `json:"records"`
	ExportedAt time.Time    `json:"exportedAt"`
}
