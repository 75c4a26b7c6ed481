// Package recordservice coordinates the record stores, the backend
// preference, and event publication for the HTTP and MCP surfaces.
package recordservice

import (
	"context"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/kv"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/sse"
)

// Service routes every operation to the currently preferred backend.
// The preference is consulted at the start of each call, so a backend
// switch takes effect on the next operation without restart.
type Service struct {
	durable  *record.Store
	session  *record.Store
	settings *settings.Settings
	broker   *sse.Broker
}

// NewService creates a record service over both backends. broker may be
// nil, in which case no events are published.
func NewService(durable, session *record.Store, st *settings.Settings, broker *sse.Broker) *Service {
	return &Service{durable: durable, session: session, settings: st, broker: broker}
}

// store returns the record store for the currently selected backend.
func (s *Service) store() *record.Store {
	if s.settings.Backend() == kv.BackendSession {
		return s.session
	}
	return s.durable
}

// ETag derives the entity tag for a record. It changes on every
// persisted write because UpdatedAt does.
func ETag(r record.Record) string {
	return checksum.Sum([]byte(r.ID + "\x00" + r.Title + "\x00" + r.Body + "\x00" + r.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z")))
}

// Add creates a record in the active backend.
func (s *Service) Add(_ context.Context, fields record.Fields) (record.Record, error) {
	r, err := s.store().Add(fields)
	if err != nil {
		return record.Record{}, err
	}
	s.publish("created", r.ID)
	return r, nil
}

// Update applies patch to an existing record. When ifMatch is non-empty
// it must equal the current ETag; a mismatch fails with
// apperr.ErrConflict and leaves the record unchanged.
func (s *Service) Update(_ context.Context, id string, patch record.Patch, ifMatch string) (record.Record, error) {
	st := s.store()
	if ifMatch != "" {
		current, ok, err := st.Get(id)
		if err != nil {
			return record.Record{}, err
		}
		if !ok {
			return record.Record{}, fmt.Errorf("record %s: %w", id, apperr.ErrNotFound)
		}
		if ETag(current) != ifMatch {
			return record.Record{}, fmt.Errorf("record %s: %w", id, apperr.ErrConflict)
		}
	}
	r, err := st.Update(id, patch)
	if err != nil {
		return record.Record{}, err
	}
	s.publish("updated", r.ID)
	return r, nil
}

// Delete removes a record. Deleting a nonexistent id succeeds.
func (s *Service) Delete(_ context.Context, id string) error {
	if err := s.store().Delete(id); err != nil {
		return err
	}
	s.publish("deleted", id)
	return nil
}

// Get returns the record under id from the active backend. Missing and
// corrupt entries report ok=false.
func (s *Service) Get(_ context.Context, id string) (record.Record, bool, error) {
	return s.store().Get(id)
}

// List returns all records in the active backend, most recently updated
// first, plus the count of corrupt entries skipped during enumeration.
func (s *Service) List(_ context.Context) ([]record.Record, int, error) {
	return s.store().List()
}

// Search lists the active backend and filters by case-insensitive
// substring match on the title.
func (s *Service) Search(ctx context.Context, query string) ([]record.Record, int, error) {
	records, skipped, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return record.SearchByTitle(records, query), skipped, nil
}

// Clear removes every record from the active backend only.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store().Clear(); err != nil {
		return err
	}
	s.publish("deleted", "")
	return nil
}

// Backend returns the name of the currently selected backend.
func (s *Service) Backend(_ context.Context) string {
	return s.settings.Backend()
}

// SwitchBackend selects the named backend for subsequent operations.
func (s *Service) SwitchBackend(_ context.Context, name string) error {
	if err := s.settings.SetBackend(name); err != nil {
		return err
	}
	if s.broker != nil {
		s.broker.PublishSettingsEvent(name)
	}
	return nil
}

func (s *Service) publish(kind, id string) {
	if s.broker != nil {
		s.broker.PublishRecordEvent(kind, id)
	}
}
