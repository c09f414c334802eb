// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package session holds the per-vault runtime state that used to be
// process-wide: the active symmetric key. A Session is created once per
// client process and handed to every storage decorator and to the sync
// engine; locking it makes every later encrypted read or write fail.
package session

import (
	"errors"
	"sync"
)

// ErrVaultLocked is returned by [Session.Key] while no key is held.
var ErrVaultLocked = errors.New("vault is locked")

// Session owns the active data key. The zero value is a locked session.
type Session struct {
	mu  sync.RWMutex
	key []byte

	onLock []func()
}

// New returns a locked session.
func New() *Session {
	return &Session{}
}

// Unlock installs key as the active key. The session keeps its own copy.
func (s *Session) Unlock(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero(s.key)
	s.key = append([]byte(nil), key...)
}

// Lock zeroes and drops the active key, then runs the registered lock hooks.
func (s *Session) Lock() {
	s.mu.Lock()
	wasUnlocked := s.key != nil
	zero(s.key)
	s.key = nil
	hooks := append([]func(){}, s.onLock...)
	s.mu.Unlock()

	if !wasUnlocked {
		return
	}
	for _, hook := range hooks {
		hook()
	}
}

// Key returns a copy of the active key or [ErrVaultLocked].
func (s *Session) Key() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrVaultLocked
	}
	return append([]byte(nil), s.key...), nil
}

// IsUnlocked reports whether a key is held.
func (s *Session) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// OnLock registers fn to run after every transition to the locked state.
func (s *Session) OnLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLock = append(s.onLock, fn)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
