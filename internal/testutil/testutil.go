// Package testutil provides shared test helpers for setting up storage
// backends and record stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/kv"
	"github.com/starford/raido/internal/record"
)

// TestSQLite creates a temporary SQLite backend that is automatically
// cleaned up.
func TestSQLite(t *testing.T, opts ...kv.SQLiteOption) *kv.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := kv.OpenSQLite(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStore creates a record store over an in-memory backend.
func TestStore(t *testing.T, prefix string) (*record.Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	return record.NewStore(backend, prefix), backend
}
