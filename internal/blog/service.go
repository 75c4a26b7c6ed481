// Package blog merges posts from a remote JSON API with local drafts
// kept in the record store.
package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/raido/internal/record"
)

// Post is a blog entry from either source.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Source    string    `json:"source"` // "remote" or "draft"
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Service fetches remote posts and manages local drafts. Drafts live in
// their own record-store namespace, disjoint from the notes records.
type Service struct {
	baseURL string
	http    *http.Client
	drafts  *record.Store
	logger  *slog.Logger
}

// NewService creates a blog service. drafts is the record store holding
// local drafts under its own prefix.
func NewService(baseURL string, timeout time.Duration, drafts *record.Store, logger *slog.Logger) *Service {
	return &Service{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		drafts:  drafts,
		logger:  logger,
	}
}

// remotePost mirrors the remote API shape.
type remotePost struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// List returns local drafts (newest first) followed by remote posts in
// API order. A remote failure degrades to drafts-only with a warning
// rather than failing the whole listing.
func (s *Service) List(ctx context.Context) ([]Post, error) {
	drafts, skipped, err := s.drafts.List()
	if err != nil {
		return nil, fmt.Errorf("blog: list drafts: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("blog: skipped corrupt drafts", slog.Int("count", skipped))
	}

	out := make([]Post, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftPost(d))
	}

	remote, err := s.fetchRemote(ctx)
	if err != nil {
		s.logger.Warn("blog: remote fetch failed, serving drafts only", slog.String("error", err.Error()))
		return out, nil
	}
	return append(out, remote...), nil
}

// Get returns a single post, checking drafts before the remote API.
func (s *Service) Get(ctx context.Context, id string) (Post, bool, error) {
	if d, ok, err := s.drafts.Get(id); err != nil {
		return Post{}, false, err
	} else if ok {
		return draftPost(d), true, nil
	}

	remote, err := s.fetchRemote(ctx)
	if err != nil {
		return Post{}, false, err
	}
	for _, p := range remote {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Post{}, false, nil
}

// SaveDraft persists a new local draft.
func (s *Service) SaveDraft(_ context.Context, fields record.Fields) (Post, error) {
	r, err := s.drafts.Add(fields)
	if err != nil {
		return Post{}, err
	}
	return draftPost(r), nil
}

// DeleteDraft removes a local draft. Remote posts cannot be deleted.
func (s *Service) DeleteDraft(_ context.Context, id string) error {
	return s.drafts.Delete(id)
}

func (s *Service) fetchRemote(ctx context.Context) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/posts", nil)
	if err != nil {
		return nil, fmt.Errorf("blog: build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blog: fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blog: unexpected status %d", resp.StatusCode)
	}

	var posts []remotePost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("blog: decode posts: %w", err)
	}

	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = Post{
			ID:     "remote-" + strconv.Itoa(p.ID),
			Title:  p.Title,
			Body:   p.Body,
			Source: "remote",
		}
	}
	return out, nil
}

func draftPost(r record.Record) Post {
	return Post{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Source:    "draft",
		UpdatedAt: r.UpdatedAt,
	}
}
