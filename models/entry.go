// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// EntryStatus is the publication state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusPublished EntryStatus = "published"
)

// Entry is a journal entry. UpdatedAt is set by the writing device and is
// the authority for last-write-wins comparison on pull.
type Entry struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Tags      []string    `json:"tags"`
	Status    EntryStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Setting is a single key/value preference. Its Value is encrypted at rest.
type Setting struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}
