package session

import "context"

// fetchInfoCollectionsStage downloads the collection → last-modified map
// the engine stages consult to decide whether server-side changes exist.
type fetchInfoCollectionsStage struct{}

// NewFetchInfoCollectionsStage returns the factory for the
// info/collections stage.
func NewFetchInfoCollectionsStage() StageFactory {
	return func() GlobalSyncStage { return &fetchInfoCollectionsStage{} }
}

func (st *fetchInfoCollectionsStage) Execute(ctx context.Context, session *GlobalSession) {
	go func() {
		ic, err := session.Client().InfoCollections(ctx)
		if err != nil {
			session.HandleHTTPError(err, "failure fetching info/collections")
			return
		}

		session.Config.InfoCollections = ic
		session.Log().Debug().Int("collections", len(ic)).Msg("info/collections fetched")
		session.Advance()
	}()
}
