package session

import (
	"context"
	"fmt"

	"github.com/MKhiriev/weavesync/internal/repo"
)

// serverSyncStage is the generic per-collection engine stage: it joins the
// collection's local store with its remote (encrypted) counterpart,
// downloads server changes since the collection high-water mark, uploads
// local ones, and moves the mark forward. Envelope/crypto failures stay
// per-record and are aggregated against the session's failure threshold;
// transport failures route through the session's HTTP error policy.
type serverSyncStage struct {
	collection string
	local      repo.Store
}

// NewServerSyncStage returns a factory joining collection's local store to
// its remote repository.
func NewServerSyncStage(collection string, local repo.Store) StageFactory {
	return func() GlobalSyncStage {
		return &serverSyncStage{collection: collection, local: local}
	}
}

func (st *serverSyncStage) Execute(ctx context.Context, session *GlobalSession) {
	go st.run(ctx, session)
}

func (st *serverSyncStage) run(ctx context.Context, session *GlobalSession) {
	// Stage-scoped context: an early failure return must release the fetch
	// producer goroutines, which otherwise block on a full stream buffer
	// until the session-wide ctx dies.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := session.Config
	log := session.Log()
	lastSync := cfg.Timestamp(st.collection)

	// No server-side change since our mark: the stage still runs and
	// advances, it just has no transfer to do.
	if serverTS, ok := cfg.InfoCollections.ModifiedMillis(st.collection); ok && lastSync > 0 && serverTS <= lastSync {
		log.Debug().Str("collection", st.collection).Msg("collection unchanged on server")
		session.Advance()
		return
	}

	remoteStore := repo.NewServerStore(session.Client(), cfg.SyncKeyBundle, st.collection)
	local := repo.NewSession(st.collection, st.local, log)
	remote := repo.NewSession(st.collection, remoteStore, log)
	timeout := session.OpTimeout()

	fail := func(err error, reason string) {
		local.Abort()
		remote.Abort()
		session.HandleHTTPError(err, reason)
	}

	for _, s := range []*repo.Session{local, remote} {
		d := repo.NewOneshot[repo.BeginOutcome]()
		s.Begin(d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, fmt.Sprintf("begin %s session", st.collection))
			return
		}
	}

	// Snapshot the locally changed GUIDs before any download lands, so the
	// upload pass only carries genuine local changes. Records written by the
	// download pass sit above the mark too, but echoing them back to the
	// server would never converge.
	guids := repo.NewOneshot[repo.GuidsOutcome]()
	local.GuidsSince(ctx, lastSync, guids)
	guidsOut, err := guids.Await(ctx, timeout)
	if err == nil {
		err = guidsOut.Err
	}
	if err != nil {
		fail(err, fmt.Sprintf("list local %s changes", st.collection))
		return
	}
	locallyChanged := make(map[string]struct{}, len(guidsOut.GUIDs))
	for _, guid := range guidsOut.GUIDs {
		locallyChanged[guid] = struct{}{}
	}

	failures := 0
	overLimit := func(n int) bool {
		failures += n
		return failures > session.RecordFailureLimit()
	}

	// Download server changes into the local store.
	maxModified := lastSync
	stream := repo.NewFetchStream(16)
	remote.FetchSince(ctx, lastSync, stream)
	for rec := range stream.Records {
		d := repo.NewOneshot[repo.StoreOutcome]()
		local.Store(ctx, rec, d)
		out, err := d.Await(ctx, timeout)
		if err != nil {
			fail(err, fmt.Sprintf("store %s record locally", st.collection))
			return
		}
		if out.Err != nil {
			log.Warn().Err(out.Err).
				Str("collection", st.collection).
				Str("guid", out.GUID).
				Msg("record failed to store, continuing")
			if overLimit(1) {
				fail(fmt.Errorf("%w: %d failures in %s", ErrRecordFailureLimit, failures, st.collection),
					"storing downloaded records")
				return
			}
			continue
		}
		if rec.LastModified > maxModified {
			maxModified = rec.LastModified
		}
	}

	outcome, err := stream.Done.Await(ctx, timeout)
	if err != nil {
		fail(err, fmt.Sprintf("fetch %s from server", st.collection))
		return
	}
	if outcome.Err != nil {
		fail(outcome.Err, fmt.Sprintf("fetch %s from server", st.collection))
		return
	}
	for _, rf := range outcome.Failures {
		log.Warn().Err(rf.Err).
			Str("collection", st.collection).
			Str("guid", rf.GUID).
			Msg("record failed to decode, continuing")
	}
	if overLimit(len(outcome.Failures)) {
		fail(fmt.Errorf("%w: %d failures in %s", ErrRecordFailureLimit, failures, st.collection),
			"decoding downloaded records")
		return
	}

	// Upload local changes made since the mark. Anything outside the
	// snapshot taken above arrived from the server this attempt and is
	// skipped.
	upStream := repo.NewFetchStream(16)
	local.FetchSince(ctx, lastSync, upStream)
	uploaded := 0
	for rec := range upStream.Records {
		if _, ok := locallyChanged[rec.GUID]; !ok {
			continue
		}
		d := repo.NewOneshot[repo.StoreOutcome]()
		remote.Store(ctx, rec, d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, fmt.Sprintf("upload %s record", st.collection))
			return
		}
		uploaded++
	}
	upOutcome, err := upStream.Done.Await(ctx, timeout)
	if err == nil {
		err = upOutcome.Err
	}
	if err != nil {
		fail(err, fmt.Sprintf("fetch local %s changes", st.collection))
		return
	}

	if serverTS, ok := cfg.InfoCollections.ModifiedMillis(st.collection); ok && serverTS > maxModified {
		maxModified = serverTS
	}
	// Uploads bump the server-side collection timestamp past the
	// info/collections snapshot; moving the mark to the upload response
	// keeps the next attempt from re-downloading what we just wrote.
	if ts := remoteStore.LastUploadModified(); ts > maxModified {
		maxModified = ts
	}
	cfg.SetTimestamp(st.collection, maxModified)

	for _, s := range []*repo.Session{local, remote} {
		d := repo.NewOneshot[repo.FinishOutcome]()
		s.Finish(d)
		out, err := d.Await(ctx, timeout)
		if err == nil {
			err = out.Err
		}
		if err != nil {
			fail(err, fmt.Sprintf("finish %s session", st.collection))
			return
		}
	}

	log.Info().
		Str("collection", st.collection).
		Int("downloaded", outcome.Fetched).
		Int("uploaded", uploaded).
		Int("record_failures", failures).
		Msg("collection synchronized")
	session.Advance()
}
