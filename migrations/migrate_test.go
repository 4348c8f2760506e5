package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrate(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	// One in-memory database per connection; pin the pool to keep the
	// migrated schema visible.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='clients'`).Scan(&name)
	if err != nil {
		t.Fatalf("clients table missing after migration: %v", err)
	}

	// Re-running against a migrated database is a no-op.
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}
}
