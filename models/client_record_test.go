package models

import (
	"testing"
)

func TestClientRecord_RecordRoundTrip(t *testing.T) {
	c := ClientRecord{
		GUID:         "device123456",
		Name:         "alice's phone",
		Type:         DeviceTypeMobile,
		OS:           "Android",
		Commands:     []Command{{Name: "displayURI", Args: []string{"https://example.org", "device789"}}},
		LastModified: 1700000000500,
	}

	rec, err := c.ToRecord()
	if err != nil {
		t.Fatalf("ToRecord error: %v", err)
	}
	if rec.GUID != c.GUID || rec.Collection != CollectionClients || rec.LastModified != c.LastModified {
		t.Fatalf("unexpected record shape: %+v", rec)
	}

	got, err := ClientRecordFromRecord(rec)
	if err != nil {
		t.Fatalf("ClientRecordFromRecord error: %v", err)
	}
	if got.Name != c.Name || got.Type != c.Type || got.OS != c.OS {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Commands) != 1 || got.Commands[0].Name != "displayURI" {
		t.Fatalf("commands not preserved: %+v", got.Commands)
	}
}

func TestClientRecordFromRecord_EnvelopeFieldsAuthoritative(t *testing.T) {
	// The payload claims a different id; the envelope-level GUID and
	// timestamp must win.
	rec := Record{
		GUID:         "realdevice12",
		Collection:   CollectionClients,
		LastModified: 2000,
		Payload:      []byte(`{"id": "spoofed", "name": "phone", "type": "mobile"}`),
	}

	got, err := ClientRecordFromRecord(rec)
	if err != nil {
		t.Fatalf("ClientRecordFromRecord error: %v", err)
	}
	if got.GUID != "realdevice12" {
		t.Fatalf("GUID = %q, want envelope value", got.GUID)
	}
	if got.LastModified != 2000 {
		t.Fatalf("LastModified = %d, want 2000", got.LastModified)
	}
}

func TestClientRecordFromRecord_BadPayload(t *testing.T) {
	rec := Record{GUID: "device123456", Collection: CollectionClients, Payload: []byte("not json")}
	if _, err := ClientRecordFromRecord(rec); err == nil {
		t.Fatalf("expected decode error")
	}
}
