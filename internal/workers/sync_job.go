package workers

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/weavesync/internal/logger"
)

// SyncJob runs sync attempts on a ticker. The job is idle until Start is
// called; each tick builds one fresh attempt through the runner.
type SyncJob struct {
	runner SyncRunner
	log    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a SyncJob that calls runner.RunSync on a ticker.
func NewSyncJob(runner SyncRunner, log *logger.Logger) *SyncJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SyncJob{runner: runner, log: log}
}

// Start stops any previously running job, then launches a background
// goroutine that syncs every interval. If interval is zero or negative it
// defaults to 5 minutes. The goroutine exits when ctx is cancelled or Stop
// is called.
func (j *SyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				if err := j.runner.RunSync(jobCtx); err != nil {
					j.log.Warn().Err(err).Msg("periodic sync attempt failed")
				}
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has exited.
// Safe to call when the job is not running.
func (j *SyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
