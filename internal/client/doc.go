// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the headless sync agent.
//
// An agent unlocks the local vault, takes part in leader election with the
// other agents on the same profile directory and, while it is leader,
// registers the device, runs the initial sync and drives the sync scheduler.
// Followers forward local changes to the leader and show the leader's sync
// results. The vault locks after a period without local changes; locking
// stops syncing and ends the agent.
package client
