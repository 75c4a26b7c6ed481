// Package kv defines the key-value storage medium and its two backends.
package kv

// Backend names used in config and the settings API.
const (
	BackendDurable = "durable"
	BackendSession = "session"
)

// Store is the interface for a flat string key-value surface.
// The two implementations (durable SQLite, session-scoped memory) hold
// independent, disjoint data; nothing is migrated between them.
type Store interface {
	// Get returns the value for key and whether the key exists.
	Get(key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error
	// Keys returns every key currently held, in no particular order.
	Keys() ([]string, error)
	// Len returns the number of keys currently held.
	Len() (int, error)
}

// Verify both backends satisfy Store at compile time.
var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Memory)(nil)
)
