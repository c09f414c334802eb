// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui renders the client agent's one-line sync status.
package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/service"
)

// StatusLine tracks sync events and prints a styled status line for each of
// them. It is safe for concurrent use.
type StatusLine struct {
	mu  sync.Mutex
	out io.Writer

	status    service.SyncStatus
	detail    string
	lastSync  time.Time
	conflicts int

	now func() time.Time
}

func NewStatusLine(out io.Writer) *StatusLine {
	return &StatusLine{
		out:    out,
		status: service.StatusIdle,
		now:    time.Now,
	}
}

// Handle folds e into the current state and prints the result.
func (s *StatusLine) Handle(e service.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case service.EventSyncStart:
		s.status = service.StatusSyncing
		s.detail = ""
	case service.EventSyncComplete:
		s.status = service.StatusIdle
		s.lastSync = s.now()
		s.detail = fmt.Sprintf("%d changed", len(e.ChangedIDs))
	case service.EventSyncError:
		s.status = service.StatusForError(e.Err)
		s.detail = service.DescribeSyncError(e.Err)
	case service.EventInitialSyncProgress:
		s.status = service.StatusSyncing
		s.detail = fmt.Sprintf("downloaded %d records", e.Progress)
	case service.EventConflictResolved:
		if e.Conflict == nil {
			return
		}
		s.conflicts++
		s.detail = describeConflict(*e.Conflict)
	default:
		return
	}

	s.print()
}

// SetStatus overrides the status, e.g. when the vault is locked.
func (s *StatusLine) SetStatus(status service.SyncStatus, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.detail = detail
	s.print()
}

// Render returns the current line without printing it.
func (s *StatusLine) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render()
}

func (s *StatusLine) print() {
	fmt.Fprintln(s.out, s.render())
}

func (s *StatusLine) render() string {
	parts := []string{statusStyles[s.status].Render(string(s.status))}

	var details []string
	if s.detail != "" {
		details = append(details, s.detail)
	}
	if !s.lastSync.IsZero() {
		details = append(details, "last sync "+s.lastSync.Format(time.TimeOnly))
	}
	if s.conflicts > 0 {
		details = append(details, fmt.Sprintf("%d overridden by other devices", s.conflicts))
	}
	if len(details) > 0 {
		parts = append(parts, detailStyle.Render(strings.Join(details, " · ")))
	}

	return strings.Join(parts, " ")
}

func describeConflict(c service.Conflict) string {
	title := c.Title
	if title == "" {
		title = c.RecordID
	}
	if c.Type == service.ConflictDeleted {
		return fmt.Sprintf("%q was deleted on another device", title)
	}
	return fmt.Sprintf("%q was changed on another device", title)
}
