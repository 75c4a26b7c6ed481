package kv

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

// ErrQuotaExceeded is returned by Set when a write would exceed the
// configured capacity of the durable backend.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// SQLite implements Store backed by a single SQLite table. It is the
// durable backend: contents survive process restarts.
type SQLite struct {
	conn *sql.DB

	// maxEntries and maxValueBytes bound the store when non-zero,
	// mirroring the capacity limits of browser storage media.
	maxEntries    int
	maxValueBytes int
}

// SQLiteOption configures an SQLite store.
type SQLiteOption func(*SQLite)

// WithMaxEntries caps the number of keys the store will accept.
func WithMaxEntries(n int) SQLiteOption {
	return func(s *SQLite) { s.maxEntries = n }
}

// WithMaxValueBytes caps the byte length of a single value.
func WithMaxValueBytes(n int) SQLiteOption {
	return func(s *SQLite) { s.maxValueBytes = n }
}

// OpenSQLite opens (or creates) the SQLite database and applies the schema.
func OpenSQLite(dsn string, opts ...SQLiteOption) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kv: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: apply schema: %w", err)
	}
	s := &SQLite{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Get returns the value for key and whether the key exists.
func (s *SQLite) Get(key string) (string, bool, error) {
	var v string
	err := s.conn.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set writes value under key, replacing any previous value. It fails with
// ErrQuotaExceeded when the write would exceed a configured limit.
func (s *SQLite) Set(key, value string) error {
	if s.maxValueBytes > 0 && len(value) > s.maxValueBytes {
		return fmt.Errorf("%w: value is %d bytes, limit %d", ErrQuotaExceeded, len(value), s.maxValueBytes)
	}
	if s.maxEntries > 0 {
		var exists bool
		if err := s.conn.QueryRow(`SELECT EXISTS(SELECT 1 FROM entries WHERE key = ?)`, key).Scan(&exists); err != nil {
			return fmt.Errorf("kv: set %s: %w", key, err)
		}
		if !exists {
			n, err := s.Len()
			if err != nil {
				return err
			}
			if n >= s.maxEntries {
				return fmt.Errorf("%w: %d entries, limit %d", ErrQuotaExceeded, n, s.maxEntries)
			}
		}
	}
	_, err := s.conn.Exec(`
		INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *SQLite) Remove(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: remove %s: %w", key, err)
	}
	return nil
}

// Keys returns every key currently held.
func (s *SQLite) Keys() ([]string, error) {
	rows, err := s.conn.Query(`SELECT key FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Len returns the number of keys currently held.
func (s *SQLite) Len() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("kv: len: %w", err)
	}
	return n, nil
}
