package session

import (
	"context"
	"fmt"
)

// Stage identifies one unit of the fixed, ordered synchronization pipeline.
// The declaration order below is the only valid execution order: Advance
// always moves to the next identifier, never skips, never reorders.
type Stage int

const (
	StageCheckPreconditions Stage = iota
	StageEnsureClusterURL
	StageFetchInfoCollections
	StageSyncClientsEngine
	StageSyncBookmarks
	StageSyncHistory
	StageSyncTabs
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageCheckPreconditions:
		return "checkPreconditions"
	case StageEnsureClusterURL:
		return "ensureClusterURL"
	case StageFetchInfoCollections:
		return "fetchInfoCollections"
	case StageSyncClientsEngine:
		return "syncClientsEngine"
	case StageSyncBookmarks:
		return "syncBookmarks"
	case StageSyncHistory:
		return "syncHistory"
	case StageSyncTabs:
		return "syncTabs"
	case StageCompleted:
		return "completed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// AllStages returns every stage identifier in execution order.
func AllStages() []Stage {
	return []Stage{
		StageCheckPreconditions,
		StageEnsureClusterURL,
		StageFetchInfoCollections,
		StageSyncClientsEngine,
		StageSyncBookmarks,
		StageSyncHistory,
		StageSyncTabs,
		StageCompleted,
	}
}

// Next returns the stage following s, or false when s is terminal.
func (s Stage) Next() (Stage, bool) {
	if s >= StageCompleted {
		return s, false
	}
	return s + 1, true
}

// StageState is the lifecycle of one stage instance within a session.
type StageState int

const (
	StageNotRun StageState = iota
	StageRunning
	StageSucceeded
	StageFailed
)

func (s StageState) String() string {
	switch s {
	case StageNotRun:
		return "notRun"
	case StageRunning:
		return "running"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stageState(%d)", int(s))
	}
}

// GlobalSyncStage is one executable pipeline stage. Execute may do its work
// synchronously or dispatch asynchronous I/O and return; either way it must
// eventually call exactly one of session.Advance or session.Abort (or
// session.HandleHTTPError, which resolves to one of the two), exactly once.
type GlobalSyncStage interface {
	Execute(ctx context.Context, session *GlobalSession)
}

// StageFactory builds a fresh stage instance for one session.
type StageFactory func() GlobalSyncStage

// StageEntry pairs a stage identifier with its factory in the declarative
// table the session is constructed from.
type StageEntry struct {
	ID      Stage
	Factory StageFactory
}

// StageTable is the immutable, validated identifier → stage-instance
// mapping. It is built once per session and must cover every identifier in
// the enumeration.
type StageTable struct {
	stages map[Stage]GlobalSyncStage
}

// NewStageTable constructs and validates the table: every stage identifier
// must be present exactly once.
func NewStageTable(entries []StageEntry) (*StageTable, error) {
	stages := make(map[Stage]GlobalSyncStage, len(entries))
	for _, e := range entries {
		if _, dup := stages[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s", ErrInvalidStageTable, e.ID)
		}
		if e.Factory == nil {
			return nil, fmt.Errorf("%w: nil factory for %s", ErrInvalidStageTable, e.ID)
		}
		stages[e.ID] = e.Factory()
	}

	for _, id := range AllStages() {
		if _, ok := stages[id]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidStageTable, id)
		}
	}
	return &StageTable{stages: stages}, nil
}

// Get returns the stage instance for id, or ErrNoSuchStage when the table
// does not cover it. The latter is a programmer-error signal, not a
// network condition.
func (t *StageTable) Get(id Stage) (GlobalSyncStage, error) {
	stage, ok := t.stages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchStage, id)
	}
	return stage, nil
}
