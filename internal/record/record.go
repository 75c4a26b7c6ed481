// Package record implements the namespaced record store shared by the
// Raido applications: CRUD over records persisted under a key prefix in
// a kv.Store backend, with recency-ordered listing and title search.
package record

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Record is a persisted unit of user data.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields holds the caller-supplied attributes of a new record.
type Fields struct {
	Title string
	Body  string
}

// Patch is a partial update. Only Title and Body are mutable; a nil
// pointer leaves the attribute unchanged. ID and CreatedAt can never be
// patched.
type Patch struct {
	Title *string
	Body  *string
}

// NewID returns a fresh record id: the creation time in base-36
// milliseconds plus a random hex suffix. Uniqueness is best-effort, not
// guaranteed: two ids collide only when generated in the same
// millisecond with identical random suffixes.
func NewID(now time.Time) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + hex.EncodeToString(buf[:])
}
