package record

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	r := Record{ID: "abc-123", Title: "hello", Body: "world", CreatedAt: now, UpdatedAt: now}

	value, err := encode(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, ok := decode(value)
	if !ok {
		t.Fatal("decode rejected encoded record")
	}
	if got != r {
		t.Errorf("roundtrip mismatch: %+v != %+v", got, r)
	}
}

func TestDecodeToleratesGarbage(t *testing.T) {
	cases := []string{
		"",
		"not json at all",
		"{\"truncated\":",
		"[1,2,3]",
		"42",
		`{"title":"valid json, but no id"}`,
	}
	for _, c := range cases {
		if _, ok := decode(c); ok {
			t.Errorf("decode(%q) accepted garbage", c)
		}
	}
}
