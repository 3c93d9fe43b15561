package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStorage is the SQLite-backed store for users, API tokens and
// outbound webhook registrations.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at dbPath and initializes the schema.
// Use ":memory:" for tests.
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite requires a single connection for in-process
	// databases; ":memory:" would otherwise give each connection its own db.
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already initialized connection.
func NewWithDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db, now: time.Now}
}

// SetClock replaces the clock used to auto-populate creation timestamps.
func (s *SQLiteStorage) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// getDB returns the underlying database connection for testing purposes.
func (s *SQLiteStorage) getDB() *sql.DB {
	return s.db
}

// timestamp returns the creation time to persist: t itself, or the current
// time when t is unset. Stored instants are always UTC.
func (s *SQLiteStorage) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC()
}

// nullTime converts an optional instant for storage.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// timePtr converts a nullable column back to an optional instant.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
