package session

import (
	"context"
	"fmt"
)

// checkPreconditionsStage verifies the session has everything a sync
// attempt needs before any network work: an account, credentials, and key
// material. Purely synchronous.
type checkPreconditionsStage struct{}

// NewCheckPreconditionsStage returns the factory for the first pipeline
// stage.
func NewCheckPreconditionsStage() StageFactory {
	return func() GlobalSyncStage { return &checkPreconditionsStage{} }
}

func (st *checkPreconditionsStage) Execute(_ context.Context, session *GlobalSession) {
	cfg := session.Config

	if cfg.Username == "" {
		session.Abort(fmt.Errorf("no account username configured"), "precondition check")
		return
	}
	if cfg.Auth == nil {
		session.Abort(fmt.Errorf("%w: no auth header provider", ErrAuthenticationFailed), "precondition check")
		return
	}
	if _, err := cfg.Auth.AuthHeader(); err != nil {
		session.Abort(fmt.Errorf("%w: %w", ErrAuthenticationFailed, err), "precondition check")
		return
	}
	if cfg.SyncKeyBundle == nil {
		session.Abort(ErrMissingKeyBundle, "precondition check")
		return
	}

	session.Advance()
}
