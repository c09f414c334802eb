// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// RecordType names the kind of record carried by a [SyncRecord].
type RecordType string

const (
	RecordTypeEntry     RecordType = "entry"
	RecordTypeSetting   RecordType = "setting"
	RecordTypeVaultMeta RecordType = "vault_meta"
)

// Valid reports whether t is one of the record types the server accepts.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeEntry, RecordTypeSetting, RecordTypeVaultMeta:
		return true
	}
	return false
}

// SyncRecord is the wire representation of a synchronized record, used in
// both push and pull directions.
//
// EncryptedPayload is opaque to the server: base64 of nonce ‖ AES-GCM
// ciphertext of the gzip-compressed JSON record. It is empty for tombstones.
// Version and UpdatedAt are assigned by the server on every accepted upsert.
type SyncRecord struct {
	ID               string     `json:"id"`
	RecordType       RecordType `json:"recordType"`
	EncryptedPayload string     `json:"encryptedPayload"`
	IsTombstone      bool       `json:"isTombstone"`
	DeviceID         string     `json:"deviceId,omitempty"`
	Version          int64      `json:"version,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt,omitzero"`
}

// StoredRecord is a server-side sync_records row.
type StoredRecord struct {
	SyncRecord

	UserID           string
	PayloadSizeBytes int64
	CreatedAt        time.Time
}

// PushRequest is the body of POST /api/v1/sync/push.
type PushRequest struct {
	Changes           []SyncRecord `json:"changes"`
	DeviceID          string       `json:"deviceId"`
	LastPullTimestamp *time.Time   `json:"lastPullTimestamp"`
}

// PushResponse reports how many changes were written and which ones were
// rejected because the server copy changed after the client's last pull.
type PushResponse struct {
	Accepted        int          `json:"accepted"`
	Conflicts       []SyncRecord `json:"conflicts"`
	ServerTimestamp time.Time    `json:"serverTimestamp"`
}

// PullRequest holds the query parameters of GET /api/v1/sync/pull.
type PullRequest struct {
	Since  time.Time
	Cursor string
	Limit  int
}

// PullResponse is one keyset page of records updated after PullRequest.Since.
type PullResponse struct {
	Changes         []SyncRecord `json:"changes"`
	HasMore         bool         `json:"hasMore"`
	Cursor          string       `json:"cursor,omitempty"`
	ServerTimestamp time.Time    `json:"serverTimestamp"`
}

// PullCursor is the decoded keyset position of the last row of a page.
type PullCursor struct {
	UpdatedAt time.Time
	ID        string
}
