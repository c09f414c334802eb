// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package coordinator elects one sync leader among the agents sharing a
// profile directory and gives them a broadcast channel.
//
// Leadership is an exclusive advisory lock on <profile>/sync-leader.lock.
// The operating system drops the lock when its holder exits, so another
// agent takes over on its next poll. Where no lock primitive exists, every
// agent is its own leader.
//
// The channel is the directory <profile>/sync-channel. Each message is one
// JSON file, written under a hidden temporary name and renamed into place,
// and watched with fsnotify by every agent. Files older than a minute are
// pruned.
//
// The lock is advisory only: a short window with no leader or two leaders is
// harmless because the server's per-record conflict check decides every
// write.
package coordinator
