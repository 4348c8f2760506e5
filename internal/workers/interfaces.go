// Package workers provides abstractions for managing and running
// background workers in the application: the Worker interface, a Workers
// aggregate, and the periodic sync job.
package workers

import "context"

// Worker is implemented by any background worker. Run starts the worker's
// execution; implementations block for the duration of their work or spawn
// goroutines internally.
type Worker interface {
	Run()
}

// SyncRunner performs one complete sync attempt. The periodic job builds
// one fresh attempt per tick; a GlobalSession is single-use.
type SyncRunner interface {
	RunSync(ctx context.Context) error
}
