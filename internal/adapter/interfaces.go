package adapter

//go:generate mockgen -source=interfaces.go -destination=../mock/storage_client_mock.go -package=mock

import (
	"context"

	"github.com/MKhiriev/weavesync/models"
)

// StorageClient is the transport collaborator the sync engine talks to. It
// performs authenticated HTTP requests against the storage cluster and
// yields structured responses or typed transport errors; it carries no sync
// policy of its own.
type StorageClient interface {
	// Node asks the node-assignment service for this account's cluster URL.
	Node(ctx context.Context) (string, error)

	// SetClusterURL points all subsequent storage calls at the given
	// cluster base URL.
	SetClusterURL(url string)

	// InfoCollections fetches the collection → last-modified map used to
	// decide which engine stages have server-side changes.
	InfoCollections(ctx context.Context) (models.InfoCollections, error)

	// FetchCollection returns all envelopes of collection modified at or
	// after newer (milliseconds since epoch; 0 fetches everything).
	FetchCollection(ctx context.Context, collection string, newer int64) ([]models.Envelope, error)

	// UploadEnvelopes posts envelopes to collection and returns the
	// server-assigned modified timestamp in milliseconds.
	UploadEnvelopes(ctx context.Context, collection string, envelopes []models.Envelope) (int64, error)

	// DeleteCollection removes every record of collection on the server.
	DeleteCollection(ctx context.Context, collection string) error
}

// AuthHeaderProvider yields the Authorization header value for outbound
// storage requests.
type AuthHeaderProvider interface {
	AuthHeader() (string, error)
}
