package models

// Collection names synchronized by the engine.
const (
	CollectionClients   = "clients"
	CollectionBookmarks = "bookmarks"
	CollectionHistory   = "history"
	CollectionTabs      = "tabs"
)

// Record is a decrypted, collection-agnostic sync record. Engine-specific
// payloads (bookmark fields, history visits, tab lists) live in Payload as
// raw JSON; the engine only needs the generic store/fetch contract.
type Record struct {
	GUID         string `json:"id"`
	Collection   string `json:"collection"`
	LastModified int64  `json:"modified"` // milliseconds since epoch
	SortIndex    int64  `json:"sortindex"`
	Deleted      bool   `json:"deleted,omitempty"`
	Payload      []byte `json:"payload,omitempty"`
}
