// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Local table names.
const (
	TableEntries   = "entries"
	TableSettings  = "settings"
	TableVaultMeta = "vault_meta"
)

var tableRecordTypes = map[string]RecordType{
	TableEntries:   RecordTypeEntry,
	TableSettings:  RecordTypeSetting,
	TableVaultMeta: RecordTypeVaultMeta,
}

// RecordTypeForTable returns the wire record type of a synced local table.
func RecordTypeForTable(table string) (RecordType, bool) {
	t, ok := tableRecordTypes[table]
	return t, ok
}

// TableForRecordType is the inverse of [RecordTypeForTable].
func TableForRecordType(recordType RecordType) (string, bool) {
	for table, t := range tableRecordTypes {
		if t == recordType {
			return table, true
		}
	}
	return "", false
}

// Document is one locally stored record. Field values are kept as raw JSON
// so storage decorators can transform single fields without knowing the
// record's Go type.
type Document map[string]json.RawMessage

// ID returns the "id" field, or "" when it is missing or not a string.
func (d Document) ID() string {
	var id string
	if raw, ok := d["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// UpdatedAt returns the client-supplied "updatedAt" field.
func (d Document) UpdatedAt() (time.Time, bool) {
	raw, ok := d["updatedAt"]
	if !ok {
		return time.Time{}, false
	}
	var ts time.Time
	if err := json.Unmarshal(raw, &ts); err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Clone returns a shallow copy; raw field values are shared.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// NewDocument converts any JSON-marshalable struct to a Document.
func NewDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode unmarshals the document into v.
func (d Document) Decode(v any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
