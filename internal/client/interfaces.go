// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"

	"github.com/MKhiriev/reflog-sync/internal/coordinator"
)

// Client defines the lifecycle of the agent.
type Client interface {
	// Run blocks until ctx is cancelled, a termination signal arrives or the
	// vault locks.
	Run(ctx context.Context) error
}

// Coordinator elects one syncing agent per profile directory and relays
// messages between agents. *coordinator.Coordinator implements it.
type Coordinator interface {
	IsLeader() bool
	Run(ctx context.Context, onElected, onDemoted func()) error
	RequestSync() error
	BroadcastSyncComplete(changedIDs []string) error
	Subscribe(fn func(coordinator.Message)) (unsubscribe func())
	Close() error
}
