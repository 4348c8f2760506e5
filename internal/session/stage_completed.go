package session

import "context"

// completedStage is the terminal pipeline stage: it persists the updated
// configuration and signals session success. Reaching it destroys the
// session's usefulness; it never advances.
type completedStage struct{}

// NewCompletedStage returns the factory for the terminal stage.
func NewCompletedStage() StageFactory {
	return func() GlobalSyncStage { return &completedStage{} }
}

func (st *completedStage) Execute(_ context.Context, session *GlobalSession) {
	session.Complete()
}
