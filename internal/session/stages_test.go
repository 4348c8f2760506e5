package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/weavesync/internal/mock"
	"github.com/MKhiriev/weavesync/models"
)

// reachedStage signals the test when the pipeline arrives at its slot.
type reachedStage struct{ ch chan struct{} }

func newReachedStage() *reachedStage { return &reachedStage{ch: make(chan struct{})} }

func (s *reachedStage) Execute(context.Context, *GlobalSession) { close(s.ch) }

func newStageTestSession(t *testing.T, client *mock.MockStorageClient, cb *recordingCallback, overrides map[Stage]GlobalSyncStage) *GlobalSession {
	t.Helper()

	gs, err := NewGlobalSession(newTestConfig(t), client, cb, &stubClientsData{}, tableOf(overrides), Options{}, nil)
	require.NoError(t, err)
	return gs
}

func TestCheckPreconditionsStage_MissingUsernameAborts(t *testing.T) {
	cb := newRecordingCallback()
	gs := newStageTestSession(t, nil, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewCheckPreconditionsStage()(),
		StageEnsureClusterURL:   idleStage{},
	})
	gs.Config.Username = ""

	require.NoError(t, gs.Start(context.Background()))

	select {
	case ev := <-cb.aborted:
		assert.Equal(t, "precondition check", ev.reason)
	case <-time.After(testWait):
		t.Fatal("abort callback not delivered")
	}
}

func TestCheckPreconditionsStage_FailingAuthAborts(t *testing.T) {
	cb := newRecordingCallback()
	gs := newStageTestSession(t, nil, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewCheckPreconditionsStage()(),
		StageEnsureClusterURL:   idleStage{},
	})
	gs.Config.Auth = stubAuth{err: errors.New("token rotted")}

	require.NoError(t, gs.Start(context.Background()))

	select {
	case ev := <-cb.aborted:
		assert.ErrorIs(t, ev.cause, ErrAuthenticationFailed)
	case <-time.After(testWait):
		t.Fatal("abort callback not delivered")
	}
}

func TestCheckPreconditionsStage_MissingKeyBundleAborts(t *testing.T) {
	cb := newRecordingCallback()
	gs := newStageTestSession(t, nil, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewCheckPreconditionsStage()(),
		StageEnsureClusterURL:   idleStage{},
	})
	gs.Config.SyncKeyBundle = nil

	require.NoError(t, gs.Start(context.Background()))

	select {
	case ev := <-cb.aborted:
		assert.ErrorIs(t, ev.cause, ErrMissingKeyBundle)
	case <-time.After(testWait):
		t.Fatal("abort callback not delivered")
	}
}

func TestCheckPreconditionsStage_AdvancesWhenReady(t *testing.T) {
	cb := newRecordingCallback()
	reached := newReachedStage()
	gs := newStageTestSession(t, nil, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewCheckPreconditionsStage()(),
		StageEnsureClusterURL:   reached,
	})

	require.NoError(t, gs.Start(context.Background()))

	select {
	case <-reached.ch:
	case ev := <-cb.aborted:
		t.Fatalf("session aborted: %v (%s)", ev.cause, ev.reason)
	case <-time.After(testWait):
		t.Fatal("pipeline did not reach the next stage")
	}
	assert.Equal(t, []Stage{StageCheckPreconditions}, cb.completedStages())
}

func TestEnsureClusterURLStage_ResolvesFromNodeService(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	client.EXPECT().Node(gomock.Any()).Return("https://cluster7.example.org/", nil)
	client.EXPECT().SetClusterURL("https://cluster7.example.org/")

	cb := newRecordingCallback()
	reached := newReachedStage()
	gs := newStageTestSession(t, client, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewEnsureClusterURLStage()(),
		StageEnsureClusterURL:   reached,
	})

	require.NoError(t, gs.Start(context.Background()))

	select {
	case <-reached.ch:
	case ev := <-cb.aborted:
		t.Fatalf("session aborted: %v (%s)", ev.cause, ev.reason)
	case <-time.After(testWait):
		t.Fatal("cluster stage did not advance")
	}
	assert.Equal(t, "https://cluster7.example.org/", gs.Config.ClusterURL())
}

func TestEnsureClusterURLStage_ReusesPersistedURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	// No Node expectation: a cached URL must not hit the network.
	client.EXPECT().SetClusterURL("https://cached.example.org/")

	cb := newRecordingCallback()
	reached := newReachedStage()
	gs := newStageTestSession(t, client, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewEnsureClusterURLStage()(),
		StageEnsureClusterURL:   reached,
	})
	gs.Config.SetClusterURL("https://cached.example.org/")

	require.NoError(t, gs.Start(context.Background()))

	select {
	case <-reached.ch:
	case <-time.After(testWait):
		t.Fatal("cluster stage did not advance")
	}
}

func TestFetchInfoCollectionsStage_PopulatesConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	client.EXPECT().InfoCollections(gomock.Any()).Return(models.InfoCollections{
		"clients":   1700000000.12,
		"bookmarks": 1700000123.45,
	}, nil)

	cb := newRecordingCallback()
	reached := newReachedStage()
	gs := newStageTestSession(t, client, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewFetchInfoCollectionsStage()(),
		StageEnsureClusterURL:   reached,
	})

	require.NoError(t, gs.Start(context.Background()))

	select {
	case <-reached.ch:
	case ev := <-cb.aborted:
		t.Fatalf("session aborted: %v (%s)", ev.cause, ev.reason)
	case <-time.After(testWait):
		t.Fatal("info/collections stage did not advance")
	}

	ts, ok := gs.Config.InfoCollections.ModifiedMillis("bookmarks")
	require.True(t, ok)
	assert.Equal(t, int64(1700000123450), ts)
}

func TestFetchInfoCollectionsStage_MalformedBodyAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	client.EXPECT().InfoCollections(gomock.Any()).
		Return(nil, &models.MalformedResponseError{Body: "<html>maintenance</html>"})

	cb := newRecordingCallback()
	gs := newStageTestSession(t, client, cb, map[Stage]GlobalSyncStage{
		StageCheckPreconditions: NewFetchInfoCollectionsStage()(),
		StageEnsureClusterURL:   idleStage{},
	})

	require.NoError(t, gs.Start(context.Background()))

	select {
	case ev := <-cb.aborted:
		var malformed *models.MalformedResponseError
		assert.ErrorAs(t, ev.cause, &malformed)
	case <-time.After(testWait):
		t.Fatal("abort callback not delivered")
	}
	// Malformed responses abort without burning retries.
	assert.Equal(t, int32(1), cb.aborts.Load())
}
