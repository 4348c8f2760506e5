// Package clients implements the "known devices" engine: the sqlite-backed
// client registry, the clients-data delegate, and the pipeline stage that
// synchronizes the clients collection.
package clients

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/weavesync/internal/logger"
	"github.com/MKhiriev/weavesync/migrations"
	"github.com/MKhiriev/weavesync/models"
)

// ErrClientNotFound is returned by Get for an unknown GUID.
var ErrClientNotFound = errors.New("client record not found")

// Registry is the local store of known client devices.
type Registry struct {
	db     *sql.DB
	logger *logger.Logger
}

// OpenRegistry opens (creating and migrating if needed) the client registry
// database at dsn. ":memory:" is accepted for tests.
func OpenRegistry(ctx context.Context, dsn string, log *logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.Nop()
	}
	if dsn != ":memory:" {
		if err := createDBFileIfNotExists(dsn); err != nil {
			log.Err(err).Str("func", "OpenRegistry").Msg("error creating database file")
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "OpenRegistry").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to registry DB: %w", err)
	}
	if dsn == ":memory:" {
		// Every pooled connection gets its own in-memory database; pin the
		// pool to one so the migrated schema is visible to all queries.
		conn.SetMaxOpenConns(1)
	}

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "OpenRegistry").Msg("error connecting database (ping)")
		return nil, err
	}

	if err = migrations.Migrate(conn); err != nil {
		log.Err(err).Str("func", "OpenRegistry").Msg("error migrating registry schema")
		return nil, err
	}

	return &Registry{db: conn, logger: log}, nil
}

// NewRegistryWithDB wraps an existing connection; tests use this with
// sqlmock.
func NewRegistryWithDB(db *sql.DB, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{db: db, logger: log}
}

func createDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating registry DB file: %w", err)
		}
		f.Close()
	}
	return nil
}

// Store upserts a client record by GUID.
func (r *Registry) Store(ctx context.Context, rec models.ClientRecord) error {
	commands, err := json.Marshal(rec.Commands)
	if err != nil {
		return fmt.Errorf("encode commands for %s: %w", rec.GUID, err)
	}

	_, err = r.db.ExecContext(ctx, upsertClient,
		rec.GUID,
		rec.Name,
		rec.Type,
		rec.Device,
		rec.OS,
		string(commands),
		rec.LastModified,
	)
	if err != nil {
		r.logger.Err(err).
			Str("func", "Registry.Store").
			Str("guid", rec.GUID).
			Msg("failed to execute upsert for client record")
		return fmt.Errorf("failed to store client record (guid=%s): %w", rec.GUID, err)
	}
	return nil
}

// Get returns the client record for guid.
func (r *Registry) Get(ctx context.Context, guid string) (models.ClientRecord, error) {
	row := r.db.QueryRowContext(ctx, getClient, guid)

	rec, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClientRecord{}, fmt.Errorf("%w: %s", ErrClientNotFound, guid)
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "Registry.Get").
			Str("guid", guid).
			Msg("failed to scan client record row")
		return models.ClientRecord{}, fmt.Errorf("failed to scan client record: %w", err)
	}
	return rec, nil
}

// FetchAll returns every known client keyed by GUID.
func (r *Registry) FetchAll(ctx context.Context) (map[string]models.ClientRecord, error) {
	rows, err := r.db.QueryContext(ctx, getAllClients)
	if err != nil {
		r.logger.Err(err).Str("func", "Registry.FetchAll").Msg("failed to query all client records")
		return nil, fmt.Errorf("failed to query all client records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.ClientRecord)
	for rows.Next() {
		rec, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client record row: %w", err)
		}
		out[rec.GUID] = rec
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client record rows: %w", err)
	}
	return out, nil
}

// FetchSince returns clients modified at or after newer.
func (r *Registry) FetchSince(ctx context.Context, newer int64) ([]models.ClientRecord, error) {
	rows, err := r.db.QueryContext(ctx, getClientsSince, newer)
	if err != nil {
		return nil, fmt.Errorf("failed to query client records since %d: %w", newer, err)
	}
	defer rows.Close()

	var out []models.ClientRecord
	for rows.Next() {
		rec, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client record row: %w", err)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client record rows: %w", err)
	}
	return out, nil
}

// GuidsSince returns GUIDs of clients modified at or after newer.
func (r *Registry) GuidsSince(ctx context.Context, newer int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, getGuidsSince, newer)
	if err != nil {
		return nil, fmt.Errorf("failed to query client guids since %d: %w", newer, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var guid string
		if err = rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf("failed to scan client guid: %w", err)
		}
		out = append(out, guid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client guid rows: %w", err)
	}
	return out, nil
}

// Count returns the number of stored client records.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countClients).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count client records: %w", err)
	}
	return n, nil
}

// WipeDB deletes every client record.
func (r *Registry) WipeDB(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, wipeClients); err != nil {
		r.logger.Err(err).Str("func", "Registry.WipeDB").Msg("failed to wipe client records")
		return fmt.Errorf("failed to wipe client records: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (models.ClientRecord, error) {
	var rec models.ClientRecord
	var commands string

	if err := row.Scan(
		&rec.GUID,
		&rec.Name,
		&rec.Type,
		&rec.Device,
		&rec.OS,
		&commands,
		&rec.LastModified,
	); err != nil {
		return models.ClientRecord{}, err
	}

	if err := json.Unmarshal([]byte(commands), &rec.Commands); err != nil {
		return models.ClientRecord{}, fmt.Errorf("decode commands: %w", err)
	}
	return rec, nil
}
