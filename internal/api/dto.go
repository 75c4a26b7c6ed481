package api

import (
	"github.com/starford/raido/internal/blog"
	"github.com/starford/raido/internal/record"
)

// CreateRecordRequest is the request body for creating a record.
type CreateRecordRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdateRecordRequest is the request body for a partial record update.
// Absent attributes are left unchanged; only title and body are mutable.
type UpdateRecordRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// RecordListResponse wraps a record listing. Skipped counts entries
// under the namespace that failed to deserialize and were excluded.
type RecordListResponse struct {
	Records []record.Record `json:"records"`
	Total   int             `json:"total"`
	Skipped int             `json:"skipped"`
}

// SettingsResponse reports the active storage backend.
type SettingsResponse struct {
	Backend string `json:"backend"`
}

// UpdateSettingsRequest selects a storage backend ("durable" or "session").
type UpdateSettingsRequest struct {
	Backend string `json:"backend"`
}

// PostListResponse wraps a blog listing.
type PostListResponse struct {
	Posts []blog.Post `json:"posts"`
}

// CreateDraftRequest is the request body for saving a blog draft.
type CreateDraftRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
