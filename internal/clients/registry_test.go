package clients

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MKhiriev/weavesync/models"
)

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewRegistryWithDB(db, nil), mock, db
}

func clientRows(recs ...models.ClientRecord) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"guid", "name", "type", "device", "os", "commands", "last_modified"})
	for _, rec := range recs {
		commands := "[]"
		if rec.Commands != nil {
			b, _ := json.Marshal(rec.Commands)
			commands = string(b)
		}
		rows.AddRow(rec.GUID, rec.Name, rec.Type, rec.Device, rec.OS, commands, rec.LastModified)
	}
	return rows
}

func TestRegistry_StoreInsertsRecord(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	rec := models.ClientRecord{
		GUID:         "clientabcdef",
		Name:         "alice's laptop",
		Type:         models.DeviceTypeDesktop,
		OS:           "linux",
		LastModified: 1700000000000,
	}

	mock.ExpectExec("INSERT INTO clients").
		WithArgs(rec.GUID, rec.Name, rec.Type, rec.Device, rec.OS, "null", rec.LastModified).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := reg.Store(context.Background(), rec); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := reg.Get(context.Background(), "missing")
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("Get error = %v, want ErrClientNotFound", err)
	}
}

func TestRegistry_GetDecodesCommands(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"guid", "name", "type", "device", "os", "commands", "last_modified"}).
		AddRow("clientabcdef", "phone", "mobile", "pixel", "android",
			`[{"command":"displayURI","args":["https://example.org","clientabcdef"]}]`, int64(1700000000000))

	mock.ExpectQuery("SELECT").
		WithArgs("clientabcdef").
		WillReturnRows(rows)

	rec, err := reg.Get(context.Background(), "clientabcdef")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if len(rec.Commands) != 1 || rec.Commands[0].Name != "displayURI" {
		t.Fatalf("commands not decoded: %+v", rec.Commands)
	}
}

func TestRegistry_Count(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := reg.Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 7 {
		t.Fatalf("count = %d, want 7", n)
	}
}

func TestRegistry_FetchSince(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs(int64(1000)).
		WillReturnRows(clientRows(
			models.ClientRecord{GUID: "a", Name: "one", Type: "desktop", LastModified: 1500},
			models.ClientRecord{GUID: "b", Name: "two", Type: "mobile", LastModified: 2000},
		))

	recs, err := reg.FetchSince(context.Background(), 1000)
	if err != nil {
		t.Fatalf("FetchSince error: %v", err)
	}
	if len(recs) != 2 || recs[0].GUID != "a" || recs[1].GUID != "b" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestRegistry_WipeDB(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM clients").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := reg.WipeDB(context.Background()); err != nil {
		t.Fatalf("WipeDB error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
