// Package settings holds the runtime preferences shared by the Raido
// applications, chiefly which record-store backend is active.
package settings

import (
	"fmt"
	"sync"

	"github.com/starford/raido/internal/kv"
)

// backendKey is where the preference is persisted in the durable
// backend. It lives outside the record namespace prefix.
const backendKey = "settings/backend"

// Settings is the mutable runtime preference set. The active backend is
// read at the start of every store operation and never cached by
// callers, so a switch takes effect on the very next operation.
type Settings struct {
	mu      sync.RWMutex
	backend string
	durable kv.Store
}

// New creates Settings with the given default backend, restoring a
// previously persisted preference from the durable backend if present.
func New(durable kv.Store, defaultBackend string) (*Settings, error) {
	if err := validBackend(defaultBackend); err != nil {
		return nil, err
	}
	s := &Settings{backend: defaultBackend, durable: durable}
	if v, ok, err := durable.Get(backendKey); err != nil {
		return nil, fmt.Errorf("settings: restore: %w", err)
	} else if ok && validBackend(v) == nil {
		s.backend = v
	}
	return s, nil
}

// Backend returns the currently selected backend name.
func (s *Settings) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// SetBackend selects a backend and persists the choice. Switching does
// not migrate data between backends.
func (s *Settings) SetBackend(name string) error {
	if err := validBackend(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.backend = name
	s.mu.Unlock()
	if err := s.durable.Set(backendKey, name); err != nil {
		return fmt.Errorf("settings: persist: %w", err)
	}
	return nil
}

func validBackend(name string) error {
	switch name {
	case kv.BackendDurable, kv.BackendSession:
		return nil
	}
	return fmt.Errorf("settings: unknown backend %q", name)
}
