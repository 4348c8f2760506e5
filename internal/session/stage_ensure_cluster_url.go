package session

import "context"

// ensureClusterURLStage resolves this account's storage cluster URL. A URL
// persisted by an earlier sync is reused; otherwise the node-assignment
// service is asked. Either way the transport client is pointed at the
// cluster before any storage stage runs.
type ensureClusterURLStage struct{}

// NewEnsureClusterURLStage returns the factory for the cluster-resolution
// stage.
func NewEnsureClusterURLStage() StageFactory {
	return func() GlobalSyncStage { return &ensureClusterURLStage{} }
}

func (st *ensureClusterURLStage) Execute(ctx context.Context, session *GlobalSession) {
	if cached := session.Config.ClusterURL(); cached != "" {
		session.Client().SetClusterURL(cached)
		session.Advance()
		return
	}

	go func() {
		cluster, err := session.Client().Node(ctx)
		if err != nil {
			session.HandleHTTPError(err, "failure resolving cluster url")
			return
		}

		session.Config.SetClusterURL(cluster)
		session.Client().SetClusterURL(cluster)
		session.Log().Info().Str("cluster", cluster).Msg("cluster url assigned")
		session.Advance()
	}()
}
