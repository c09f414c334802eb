// Package workers runs the sync server's background jobs.
//
// Each job implements Worker; Workers starts them together and waits for
// all of them to return after the context is cancelled.
package workers

import "context"

// Worker is a background job. Run blocks until ctx is cancelled and the job
// has stopped.
type Worker interface {
	Run(ctx context.Context)
}
