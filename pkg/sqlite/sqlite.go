package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS reservation (
		row_id          INTEGER PRIMARY KEY AUTOINCREMENT,
		pool            TEXT NOT NULL CHECK (pool IN ('Work', 'Rest', 'Overtime')),
		campaign        TEXT NOT NULL,
		date            TEXT NOT NULL,
		hours           INTEGER NOT NULL DEFAULT 1,
		slot            TEXT NOT NULL,
		key             TEXT NOT NULL,
		email           TEXT NOT NULL,
		kind            TEXT NOT NULL,
		validation      TEXT NOT NULL DEFAULT '',
		request_status  TEXT NOT NULL DEFAULT '',
		employee_number TEXT NOT NULL DEFAULT '',
		reservation_id  TEXT NOT NULL,
		created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS reservation_pool_key_idx ON reservation (pool, key)`,
	`CREATE TABLE IF NOT EXISTS property (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// DB provides database operations using an embedded SQLite file
type DB struct {
	db *sql.DB
}

// Open opens the SQLite database at path, creating it and its schema if needed.
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer at a time; WAL keeps readers off the writer's back
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("running %q: %w", pragma, err)
		}
	}

	for i, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &DB{db: conn}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// GetCounter reads a named counter
func (d *DB) GetCounter(ctx context.Context, name string) (int64, bool, error) {
	var value int64
	err := d.db.QueryRowContext(ctx, `SELECT value FROM property WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting counter %s: %w", name, err)
	}
	return value, true, nil
}

// SetCounter writes a named counter
func (d *DB) SetCounter(ctx context.Context, name string, value int64) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO property (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("setting counter %s: %w", name, err)
	}
	return nil
}
