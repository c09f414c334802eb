// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Operation is the kind of local mutation recorded in the sync queue.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// SyncQueueEntry is one pending local mutation. Entries are append-only and
// removed in bulk once the server has accepted the record.
//
// Payload holds the record already sealed for sync (the exact value sent as
// [SyncRecord.EncryptedPayload]); it is nil for deletes.
type SyncQueueEntry struct {
	SequenceID int64
	TableName  string
	RecordID   string
	Operation  Operation
	Timestamp  time.Time
	Payload    *string
}

// Keys of the local sync_meta table.
const (
	MetaDeviceID          = "deviceId"
	MetaLastPullTimestamp = "lastPullTimestamp"
	MetaInitialSyncDone   = "initialSyncDone"
)

// RecordKey identifies a local record across tables.
type RecordKey struct {
	Table string
	ID    string
}

// Key returns the record key of the queue entry.
func (e SyncQueueEntry) Key() RecordKey {
	return RecordKey{Table: e.TableName, ID: e.RecordID}
}
