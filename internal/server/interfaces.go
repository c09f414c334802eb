package server

import "context"

// Server defines the lifecycle of the sync server process.
type Server interface {
	// RunServer serves requests until ctx is cancelled or a termination
	// signal arrives, then shuts down gracefully.
	RunServer(ctx context.Context) error

	// Shutdown stops accepting requests and waits for in-flight ones, up to
	// the shutdown timeout.
	Shutdown()
}
