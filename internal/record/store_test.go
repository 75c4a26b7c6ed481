package record

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kv"
)

const testPrefix = "records/"

func testStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	return NewStore(backend, testPrefix), backend
}

// withClock pins the store's clock so timestamp ordering is
// deterministic. Each call to tick advances it by d.
func withClock(s *Store, start time.Time) func(d time.Duration) {
	current := start
	s.now = func() time.Time { return current }
	return func(d time.Duration) { current = current.Add(d) }
}

func TestAddThenGet(t *testing.T) {
	s, _ := testStore(t)
	r, err := s.Add(Fields{Title: "groceries", Body: "milk, eggs"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.ID == "" {
		t.Fatal("Add returned empty id")
	}
	if !r.CreatedAt.Equal(r.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v on fresh record", r.CreatedAt, r.UpdatedAt)
	}

	got, ok, err := s.Get(r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get: record absent after Add")
	}
	if got.Title != "groceries" || got.Body != "milk, eggs" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestGetMissingIsAbsentNotError(t *testing.T) {
	s, _ := testStore(t)
	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if ok {
		t.Error("missing id should report absent")
	}
}

func TestUpdate(t *testing.T) {
	s, _ := testStore(t)
	tick := withClock(s, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))

	r, err := s.Add(Fields{Title: "draft", Body: "v1"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	tick(time.Second)

	title := "final"
	updated, err := s.Update(r.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "final" {
		t.Errorf("title = %q, want final", updated.Title)
	}
	if updated.Body != "v1" {
		t.Errorf("body = %q, want v1 (nil patch attribute must be untouched)", updated.Body)
	}
	if updated.ID != r.ID {
		t.Errorf("id changed: %q -> %q", r.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", r.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(r.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", r.UpdatedAt, updated.UpdatedAt)
	}

	got, ok, _ := s.Get(r.ID)
	if !ok || got.Title != "final" {
		t.Errorf("Get after Update = %+v, ok=%v", got, ok)
	}
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s, _ := testStore(t)
	title := "x"
	_, err := s.Update("ghost", Patch{Title: &title})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := testStore(t)
	r, _ := s.Add(Fields{Title: "gone"})

	if err := s.Delete(r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(r.ID); ok {
		t.Error("record still present after Delete")
	}
	records, _, _ := s.List()
	for _, got := range records {
		if got.ID == r.ID {
			t.Error("deleted record still listed")
		}
	}

	// Second delete must not error.
	if err := s.Delete(r.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestListOrdering(t *testing.T) {
	s, _ := testStore(t)
	tick := withClock(s, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))

	a, _ := s.Add(Fields{Title: "A", Body: "x"})
	tick(time.Second)
	b, _ := s.Add(Fields{Title: "B", Body: "y"})

	records, skipped, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(records) != 2 || records[0].ID != b.ID || records[1].ID != a.ID {
		t.Fatalf("order = %v, want [B A]", ids(records))
	}

	// Updating A moves it to the front.
	tick(time.Second)
	title := "A2"
	if _, err := s.Update(a.ID, Patch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	records, _, _ = s.List()
	if len(records) != 2 || records[0].Title != "A2" || records[1].ID != b.ID {
		t.Errorf("order after update = %v, want [A2 B]", ids(records))
	}
}

func TestListTieBreakIsStable(t *testing.T) {
	s, _ := testStore(t)
	withClock(s, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))

	// All records share one UpdatedAt; order must still be identical
	// across repeated calls.
	for i := 0; i < 5; i++ {
		if _, err := s.Add(Fields{Title: "same"}); err != nil {
			t.Fatal(err)
		}
	}
	first, _, _ := s.List()
	for i := 0; i < 3; i++ {
		again, _, _ := s.List()
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("ordering unstable: %v vs %v", ids(first), ids(again))
			}
		}
	}
}

func TestListSkipsCorruptEntries(t *testing.T) {
	s, backend := testStore(t)
	r, _ := s.Add(Fields{Title: "good"})

	// Plant garbage under the namespace.
	if err := backend.Set(testPrefix+"broken", "{not json"); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(testPrefix+"empty-id", `{"title":"no id"}`); err != nil {
		t.Fatal(err)
	}

	records, skipped, err := s.List()
	if err != nil {
		t.Fatalf("List with corrupt entries: %v", err)
	}
	if len(records) != 1 || records[0].ID != r.ID {
		t.Errorf("records = %v, want only the good one", ids(records))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}

	// Corrupt entry reads as absent via Get too.
	if err := backend.Set(testPrefix+r.ID, "garbage"); err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.Get(r.ID)
	if err != nil {
		t.Fatalf("Get corrupt: %v", err)
	}
	if ok {
		t.Error("corrupt entry should read as absent")
	}
}

func TestClearLeavesUnrelatedKeys(t *testing.T) {
	s, backend := testStore(t)
	_, _ = s.Add(Fields{Title: "one"})
	_, _ = s.Add(Fields{Title: "two"})
	if err := backend.Set("unrelated", "keep me"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	records, _, _ := s.List()
	if len(records) != 0 {
		t.Errorf("records after Clear = %d, want 0", len(records))
	}
	v, ok, _ := backend.Get("unrelated")
	if !ok || v != "keep me" {
		t.Error("Clear touched a key outside the namespace")
	}

	// Clearing an empty namespace is a no-op.
	if err := s.Clear(); err != nil {
		t.Errorf("Clear empty: %v", err)
	}
}

func TestWithBackendIsDisjoint(t *testing.T) {
	s, _ := testStore(t)
	other := s.WithBackend(kv.NewMemory())

	r, _ := s.Add(Fields{Title: "first backend"})
	if _, ok, _ := other.Get(r.ID); ok {
		t.Error("record visible through the other backend")
	}

	_, _ = other.Add(Fields{Title: "second backend"})
	if err := other.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(r.ID); !ok {
		t.Error("Clear on one backend affected the other")
	}
}

func TestWriteFailureSurfaced(t *testing.T) {
	backend := failingStore{}
	s := NewStore(backend, testPrefix)
	if _, err := s.Add(Fields{Title: "doomed"}); err == nil {
		t.Error("Add should surface backend write failure")
	}
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, nil }
func (failingStore) Set(string, string) error         { return errors.New("capacity exceeded") }
func (failingStore) Remove(string) error              { return nil }
func (failingStore) Keys() ([]string, error)          { return nil, nil }
func (failingStore) Len() (int, error)                { return 0, nil }

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
