package clients

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/MKhiriev/weavesync/internal/repo"
	"github.com/MKhiriev/weavesync/internal/session"
	"github.com/MKhiriev/weavesync/models"
)

// EngineStage synchronizes the "clients" collection: it downloads remote
// client records into the registry under the clients merge policy, refreshes
// the known-client count, and uploads this device's own record.
type EngineStage struct {
	registry *Registry
}

// NewEngine returns the clients engine backed by registry.
func NewEngine(registry *Registry) *EngineStage {
	return &EngineStage{registry: registry}
}

// NewEngineStage returns the stage factory for the clients engine.
func NewEngineStage(registry *Registry) session.StageFactory {
	return func() session.GlobalSyncStage {
		return NewEngine(registry)
	}
}

func (st *EngineStage) Execute(ctx context.Context, gs *session.GlobalSession) {
	go st.run(ctx, gs)
}

func (st *EngineStage) run(ctx context.Context, gs *session.GlobalSession) {
	// Stage-scoped context so failure returns release the fetch producer
	// goroutine instead of leaving it blocked on the stream buffer.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := gs.Config
	log := gs.Log()
	lastSync := cfg.Timestamp(models.CollectionClients)
	timeout := gs.OpTimeout()

	remoteStore := repo.NewServerStore(gs.Client(), cfg.SyncKeyBundle, models.CollectionClients)
	local := repo.NewSession(models.CollectionClients, NewRegistryStore(st.registry), log)
	remote := repo.NewSession(models.CollectionClients, remoteStore, log)

	fail := func(err error, reason string) {
		local.Abort()
		remote.Abort()
		gs.HandleHTTPError(err, reason)
	}

	for _, s := range []*repo.Session{local, remote} {
		d := repo.NewOneshot[repo.BeginOutcome]()
		s.Begin(d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, "begin clients session")
			return
		}
	}

	// Download remote client records into the registry.
	failures := 0
	maxModified := lastSync
	stream := repo.NewFetchStream(16)
	remote.FetchSince(ctx, lastSync, stream)
	for rec := range stream.Records {
		d := repo.NewOneshot[repo.StoreOutcome]()
		local.Store(ctx, rec, d)
		out, err := d.Await(ctx, timeout)
		if err != nil {
			fail(err, "store client record locally")
			return
		}
		if out.Err != nil {
			failures++
			log.Warn().Err(out.Err).Str("guid", out.GUID).Msg("client record failed to store, continuing")
			if failures > gs.RecordFailureLimit() {
				fail(fmt.Errorf("%w: %d failures in clients", session.ErrRecordFailureLimit, failures),
					"storing downloaded client records")
				return
			}
			continue
		}
		if rec.LastModified > maxModified {
			maxModified = rec.LastModified
		}
	}

	outcome, err := stream.Done.Await(ctx, timeout)
	if err == nil {
		err = outcome.Err
	}
	if err != nil {
		fail(err, "fetch clients from server")
		return
	}
	for _, rf := range outcome.Failures {
		log.Warn().Err(rf.Err).Str("guid", rf.GUID).Msg("client record failed to decode, continuing")
	}
	failures += len(outcome.Failures)
	if failures > gs.RecordFailureLimit() {
		fail(fmt.Errorf("%w: %d failures in clients", session.ErrRecordFailureLimit, failures),
			"decoding downloaded client records")
		return
	}

	// Upload this device's own record so other clients can see us.
	own := models.ClientRecord{
		GUID:         gs.ClientsData().LocalClientGUID(),
		Name:         gs.ClientsData().LocalClientName(),
		Type:         LocalDeviceType(),
		OS:           runtime.GOOS,
		LastModified: time.Now().UnixMilli(),
	}
	ownRec, err := own.ToRecord()
	if err != nil {
		fail(fmt.Errorf("encode own client record: %w", err), "uploading own client record")
		return
	}
	for _, s := range []*repo.Session{local, remote} {
		d := repo.NewOneshot[repo.StoreOutcome]()
		s.Store(ctx, ownRec, d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, "uploading own client record")
			return
		}
	}

	// Refresh the known-client count, in memory and persisted.
	count, err := st.registry.Count(ctx)
	if err != nil {
		fail(err, "counting client records")
		return
	}
	gs.ClientsData().SetClientCount(count)
	cfg.SetClientRecordCount(int64(count))

	if serverTS, ok := cfg.InfoCollections.ModifiedMillis(models.CollectionClients); ok && serverTS > maxModified {
		maxModified = serverTS
	}
	// The own-record upload moved the server collection timestamp; advance
	// the mark past it so the next attempt does not re-download our record.
	if ts := remoteStore.LastUploadModified(); ts > maxModified {
		maxModified = ts
	}
	cfg.SetTimestamp(models.CollectionClients, maxModified)

	for _, s := range []*repo.Session{local, remote} {
		d := repo.NewOneshot[repo.FinishOutcome]()
		s.Finish(d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, "finish clients session")
			return
		}
	}

	log.Info().
		Int("downloaded", outcome.Fetched).
		Int("known_clients", count).
		Int("record_failures", failures).
		Msg("clients collection synchronized")
	gs.Advance()
}

// WipeLocal clears the registry and resets the clients reset state: the
// persisted collection timestamp goes to zero and the in-memory client
// count goes to zero. It mirrors the generic RepositorySession wipe,
// specialized for the clients collection.
func (st *EngineStage) WipeLocal(ctx context.Context, gs *session.GlobalSession) error {
	cfg := gs.Config
	timeout := gs.OpTimeout()

	s := repo.NewSession(models.CollectionClients, NewRegistryStore(st.registry), gs.Log()).
		WithWipeHook(func() error {
			if err := cfg.ResetTimestamp(models.CollectionClients); err != nil {
				return err
			}
			cfg.SetClientRecordCount(0)
			gs.ClientsData().SetClientCount(0)
			return nil
		})

	begin := repo.NewOneshot[repo.BeginOutcome]()
	s.Begin(begin)
	if out, err := begin.Await(ctx, timeout); err != nil {
		return err
	} else if out.Err != nil {
		return out.Err
	}

	wipe := repo.NewOneshot[repo.WipeOutcome]()
	s.Wipe(ctx, wipe)
	if out, err := wipe.Await(ctx, timeout); err != nil {
		return err
	} else if out.Err != nil {
		return out.Err
	}

	finish := repo.NewOneshot[repo.FinishOutcome]()
	s.Finish(finish)
	if out, err := finish.Await(ctx, timeout); err != nil {
		return err
	} else if out.Err != nil {
		return out.Err
	}
	return nil
}
