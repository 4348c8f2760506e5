package models

import "encoding/json"

// Device types reported in client records.
const (
	DeviceTypeMobile  = "mobile"
	DeviceTypeDesktop = "desktop"
)

// Command is one entry of a client record's pending command queue.
// Queue order is insertion order and must be preserved.
type Command struct {
	Name string   `json:"command"`
	Args []string `json:"args,omitempty"`
}

// ClientRecord describes one known device in the "clients" collection.
// The GUID is assigned on first sight of a device and never changes.
type ClientRecord struct {
	GUID         string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Device       string    `json:"device,omitempty"`
	OS           string    `json:"os,omitempty"`
	Commands     []Command `json:"commands,omitempty"`
	LastModified int64     `json:"-"` // milliseconds, from the envelope
}

// ToRecord wraps the client record into the generic record shape used by
// repository sessions.
func (c ClientRecord) ToRecord() (Record, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return Record{}, err
	}
	return Record{
		GUID:         c.GUID,
		Collection:   CollectionClients,
		LastModified: c.LastModified,
		Payload:      payload,
	}, nil
}

// ClientRecordFromRecord decodes the generic record payload back into a
// client record, keeping the envelope-level GUID and timestamp
// authoritative over whatever the payload claims.
func ClientRecordFromRecord(rec Record) (ClientRecord, error) {
	var c ClientRecord
	if err := json.Unmarshal(rec.Payload, &c); err != nil {
		return ClientRecord{}, err
	}
	c.GUID = rec.GUID
	c.LastModified = rec.LastModified
	return c, nil
}
