// Package sqlite persists local flags in a SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/banter"
	_ "modernc.org/sqlite"
)

// Interface compliance check.
var _ banter.FlagStore = (*Store)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS flags (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
`

// Store is a FlagStore backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create directories: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flag returns the value stored under key.
func (s *Store) Flag(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM flags WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, banter.ErrFlagNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query flag: %w", err)
	}
	return v, nil
}

// SetFlag stores value under key.
func (s *Store) SetFlag(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO flags (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}
