// Package store is the profile-local SQLite database: client preferences and
// a diagnostic journal of received stream events.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection for the profile's beazap.db.
type DB struct {
	*sql.DB
	path string
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path. Watchers also observe the -wal and
// -shm companions next to it.
func (db *DB) Path() string {
	return db.path
}
