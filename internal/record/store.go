package record

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kv"
)

// Store owns CRUD over records persisted under a namespace prefix in one
// kv.Store backend. The backend and prefix are fixed at construction; use
// WithBackend to obtain a store over the other backend. Keys outside the
// prefix are never touched.
type Store struct {
	backend kv.Store
	prefix  string
	now     func() time.Time
}

// NewStore creates a store bound to backend, owning keys under prefix.
func NewStore(backend kv.Store, prefix string) *Store {
	return &Store{backend: backend, prefix: prefix, now: time.Now}
}

// WithBackend returns a store with the same prefix bound to another
// backend. Data is not migrated; each backend holds a disjoint set.
func (s *Store) WithBackend(backend kv.Store) *Store {
	return &Store{backend: backend, prefix: s.prefix, now: s.now}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Add generates a fresh id, stamps both timestamps with the current
// time, persists the record, and returns it. A backend write failure is
// surfaced to the caller.
func (s *Store) Add(fields Fields) (Record, error) {
	now := s.now()
	r := Record{
		ID:        NewID(now),
		Title:     fields.Title,
		Body:      fields.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Update merges patch into the existing record: ID and CreatedAt are
// preserved, UpdatedAt is set to the current time. Returns
// apperr.ErrNotFound when no record exists under id.
func (s *Store) Update(id string, patch Patch) (Record, error) {
	r, ok, err := s.Get(id)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("record %s: %w", id, apperr.ErrNotFound)
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Body != nil {
		r.Body = *patch.Body
	}
	r.UpdatedAt = s.now()
	if err := s.put(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Delete removes the record unconditionally. Deleting a nonexistent id
// is a no-op, not an error.
func (s *Store) Delete(id string) error {
	return s.backend.Remove(s.key(id))
}

// Get returns the record under id. Missing and corrupt entries both
// report ok=false; neither is an error.
func (s *Store) Get(id string) (Record, bool, error) {
	value, ok, err := s.backend.Get(s.key(id))
	if err != nil {
		return Record{}, false, err
	}
	if !ok {
		return Record{}, false, nil
	}
	r, ok := decode(value)
	return r, ok, nil
}

// List enumerates every record under the prefix, ordered by UpdatedAt
// descending (ties broken by ID descending for stable output). Entries
// that fail to deserialize are skipped and counted in skipped.
func (s *Store) List() (records []Record, skipped int, err error) {
	keys, err := s.backend.Keys()
	if err != nil {
		return nil, 0, err
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, s.prefix) {
			continue
		}
		value, ok, err := s.backend.Get(k)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		r, ok := decode(value)
		if !ok {
			skipped++
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, skipped, nil
}

// Clear removes every key under the prefix from the bound backend.
// Unrelated keys and the other backend are untouched. Clearing an empty
// namespace is a no-op.
func (s *Store) Clear() error {
	keys, err := s.backend.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, s.prefix) {
			continue
		}
		if err := s.backend.Remove(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) put(r Record) error {
	value, err := encode(r)
	if err != nil {
		return err
	}
	if err := s.backend.Set(s.key(r.ID), value); err != nil {
		return fmt.Errorf("record: write %s: %w", r.ID, err)
	}
	return nil
}
