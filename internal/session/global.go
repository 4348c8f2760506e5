// Package session implements the synchronization orchestration engine: the
// per-attempt configuration, the fixed ordered stage pipeline, and the
// GlobalSession orchestrator that drives it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/logger"
)

// Callback receives the terminal outcome of one sync attempt plus per-stage
// progress. Exactly one of HandleSuccess / HandleAborted fires per session.
type Callback interface {
	HandleStageCompleted(stage Stage)
	HandleSuccess()
	HandleAborted(cause error, reason string)
}

// ClientsDataDelegate is the collaborator tracking this device's identity
// and the in-memory count of known clients.
type ClientsDataDelegate interface {
	LocalClientGUID() string
	LocalClientName() string
	ClientCount() int
	SetClientCount(n int)
}

// Options makes the retry/backoff and failure-threshold policy explicit
// and configurable instead of being implied by classification logic.
type Options struct {
	// RetryLimit bounds retries of one stage on transient transport
	// failures. Zero selects the default of 2.
	RetryLimit int
	// RetryBaseDelay is the backoff base; attempt n waits
	// RetryBaseDelay * 2^(n-1), or the server hint when larger.
	RetryBaseDelay time.Duration
	// OpTimeout bounds every delegate wait inside a stage.
	OpTimeout time.Duration
	// RecordFailureLimit is the per-collection count of envelope/crypto
	// record failures tolerated before the stage aborts the session.
	RecordFailureLimit int
}

func (o Options) withDefaults() Options {
	if o.RetryLimit == 0 {
		o.RetryLimit = 2
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 5 * time.Second
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 30 * time.Second
	}
	if o.RecordFailureLimit <= 0 {
		o.RecordFailureLimit = 10
	}
	return o
}

// GlobalSession orchestrates one sync attempt: it owns the validated stage
// table and the cursor, serializes Advance/Abort behind a mutex (stage
// callbacks arrive from arbitrary goroutines), and is single-use — once
// aborted or completed, further calls are rejected and logged rather than
// processed.
type GlobalSession struct {
	Config *SyncConfiguration

	client      adapter.StorageClient
	callback    Callback
	clientsData ClientsDataDelegate
	table       *StageTable
	opts        Options
	log         *logger.Logger

	// ctx spans the whole attempt; set by Start, read by stage re-runs.
	ctx context.Context

	mu         sync.Mutex
	current    Stage
	states     map[Stage]StageState
	retries    map[Stage]int
	started    bool
	terminated bool
}

// NewGlobalSession validates the declarative stage table and builds a
// session ready to Start.
func NewGlobalSession(
	cfg *SyncConfiguration,
	client adapter.StorageClient,
	callback Callback,
	clientsData ClientsDataDelegate,
	entries []StageEntry,
	opts Options,
	log *logger.Logger,
) (*GlobalSession, error) {
	table, err := NewStageTable(entries)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	states := make(map[Stage]StageState, len(AllStages()))
	for _, id := range AllStages() {
		states[id] = StageNotRun
	}

	return &GlobalSession{
		Config:      cfg,
		client:      client,
		callback:    callback,
		clientsData: clientsData,
		table:       table,
		opts:        opts.withDefaults(),
		log:         log,
		states:      states,
		retries:     make(map[Stage]int),
	}, nil
}

// Client returns the transport collaborator for stage use.
func (s *GlobalSession) Client() adapter.StorageClient { return s.client }

// ClientsData returns the clients-data collaborator.
func (s *GlobalSession) ClientsData() ClientsDataDelegate { return s.clientsData }

// Log returns the session logger.
func (s *GlobalSession) Log() *logger.Logger { return s.log }

// OpTimeout returns the bounded wait applied to delegate outcomes.
func (s *GlobalSession) OpTimeout() time.Duration { return s.opts.OpTimeout }

// RecordFailureLimit returns the per-collection record failure threshold.
func (s *GlobalSession) RecordFailureLimit() int { return s.opts.RecordFailureLimit }

// CurrentStage returns the pipeline cursor.
func (s *GlobalSession) CurrentStage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// StageStateOf reports the lifecycle state of one stage instance.
func (s *GlobalSession) StageStateOf(id Stage) StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[id]
}

// Start begins the pipeline at the first stage. A session can start once.
func (s *GlobalSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already started", ErrSessionTerminated)
	}
	s.started = true
	s.ctx = ctx
	s.current = StageCheckPreconditions
	s.states[s.current] = StageRunning
	stage, err := s.table.Get(s.current)
	s.mu.Unlock()

	if err != nil {
		s.Abort(err, "pipeline table incomplete")
		return err
	}

	s.log.Info().Str("stage", s.current.String()).Msg("sync attempt started")
	stage.Execute(ctx, s)
	return nil
}

// Advance marks the current stage succeeded and executes the next one. It
// is only valid from the stage that just completed, exactly once; calls
// out of turn or after termination are rejected and logged.
func (s *GlobalSession) Advance() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.log.Error().Msg("advance on terminated session rejected")
		return
	}
	if s.states[s.current] != StageRunning {
		state := s.states[s.current]
		cur := s.current
		s.mu.Unlock()
		s.log.Error().
			Str("stage", cur.String()).
			Str("state", state.String()).
			Msg("advance called out of turn")
		return
	}

	s.states[s.current] = StageSucceeded
	completed := s.current

	next, ok := s.current.Next()
	if !ok {
		s.mu.Unlock()
		s.log.Error().Str("stage", completed.String()).Msg("advance past terminal stage")
		return
	}
	s.current = next
	s.states[next] = StageRunning
	stage, err := s.table.Get(next)
	ctx := s.ctx
	s.mu.Unlock()

	s.callback.HandleStageCompleted(completed)
	s.log.Debug().
		Str("completed", completed.String()).
		Str("next", next.String()).
		Msg("advancing pipeline")

	if err != nil {
		s.Abort(err, "pipeline table incomplete")
		return
	}
	stage.Execute(ctx, s)
}

// Abort terminates the pipeline immediately and delivers cause and reason
// to the callback exactly once. The session is unusable afterwards.
func (s *GlobalSession) Abort(cause error, reason string) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.log.Warn().Err(cause).Str("reason", reason).Msg("abort on terminated session ignored")
		return
	}
	s.terminated = true
	s.states[s.current] = StageFailed
	cur := s.current
	s.mu.Unlock()

	s.log.Error().Err(cause).
		Str("stage", cur.String()).
		Str("reason", reason).
		Msg("sync attempt aborted")
	s.callback.HandleAborted(cause, reason)
}

// Complete is called by the terminal stage: it persists the updated
// configuration and fires the success callback.
func (s *GlobalSession) Complete() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.log.Error().Msg("complete on terminated session rejected")
		return
	}
	s.terminated = true
	s.states[StageCompleted] = StageSucceeded
	s.mu.Unlock()

	if err := s.Config.Persist(); err != nil {
		s.log.Error().Err(err).Msg("persisting sync configuration at completion")
		s.callback.HandleAborted(err, "persist configuration")
		return
	}

	s.log.Info().Msg("sync attempt completed")
	s.callback.HandleSuccess()
}

// HandleHTTPError classifies a transport failure and either aborts the
// session or schedules a bounded retry of the current stage:
//
//   - 401-class responses abort with an authentication-failure cause and
//     are never retried;
//   - 5xx / backoff-bearing responses retry up to Options.RetryLimit with
//     exponential backoff, then abort;
//   - malformed bodies abort with the parse-failure cause;
//   - everything else aborts with the original cause.
func (s *GlobalSession) HandleHTTPError(err error, reason string) {
	class, hint := adapter.Classify(err)
	switch class {
	case adapter.ClassUnauthorized:
		s.Abort(fmt.Errorf("%w: %w", ErrAuthenticationFailed, err), reason)
	case adapter.ClassRetriable:
		s.retryCurrentStage(err, reason, hint)
	default:
		// Malformed and fatal classes share the abort path; the cause
		// value keeps them distinguishable for the callback.
		s.Abort(err, reason)
	}
}

func (s *GlobalSession) retryCurrentStage(cause error, reason string, hint time.Duration) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	cur := s.current
	attempt := s.retries[cur] + 1
	s.retries[cur] = attempt

	if attempt > s.opts.RetryLimit {
		s.mu.Unlock()
		s.Abort(fmt.Errorf("%w: %s failed %d times: %w", ErrRetriesExhausted, cur, attempt, cause), reason)
		return
	}

	delay := s.opts.RetryBaseDelay << (attempt - 1)
	if hint > delay {
		delay = hint
	}
	stage, err := s.table.Get(cur)
	ctx := s.ctx
	s.mu.Unlock()

	if err != nil {
		s.Abort(err, "pipeline table incomplete")
		return
	}

	s.log.Warn().Err(cause).
		Str("stage", cur.String()).
		Int("attempt", attempt).
		Dur("delay", delay).
		Str("reason", reason).
		Msg("transient transport failure, retrying stage")

	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			s.Abort(ctx.Err(), reason)
		case <-t.C:
			stage.Execute(ctx, s)
		}
	}()
}
