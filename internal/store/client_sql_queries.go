// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	getDocument = `
		SELECT data
		FROM records
		WHERE table_name = ? AND id = ?;`

	queryDocuments = `
		SELECT data
		FROM records
		WHERE table_name = ?
		ORDER BY id;`

	putDocument = `
		INSERT INTO records (table_name, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT (table_name, id) DO UPDATE SET data = excluded.data;`

	deleteDocument = `
		DELETE FROM records
		WHERE table_name = ? AND id = ?;`

	appendQueueEntry = `
		INSERT INTO sync_queue (table_name, record_id, operation, timestamp, payload)
		VALUES (?, ?, ?, ?, ?);`

	listQueueEntries = `
		SELECT sequence_id, table_name, record_id, operation, timestamp, payload
		FROM sync_queue
		ORDER BY sequence_id;`

	countPendingForRecord = `
		SELECT COUNT(*)
		FROM sync_queue
		WHERE table_name = ? AND record_id = ?;`

	countQueueEntries = `SELECT COUNT(*) FROM sync_queue;`

	deleteQueueUpTo = `
		DELETE FROM sync_queue
		WHERE sequence_id <= ?;`

	deleteQueueEntry = `
		DELETE FROM sync_queue
		WHERE sequence_id = ?;`

	getMeta = `SELECT value FROM sync_meta WHERE key = ?;`

	setMeta = `
		INSERT INTO sync_meta (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`
)
