package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/blog"
	"github.com/starford/raido/internal/recordservice"
	"github.com/starford/raido/internal/weather"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *recordservice.Service, wc *weather.Client, bs *blog.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, wc, bs)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records CRUD.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Delete("/records", h.ClearRecords)
	r.Get("/records/{id}", h.GetRecord)
	r.Put("/records/{id}", h.UpdateRecord)
	r.Delete("/records/{id}", h.DeleteRecord)

	// Search.
	r.Get("/search", h.SearchRecords)

	// Backend preference.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// Weather lookup.
	r.Get("/weather", h.GetWeather)

	// Blog viewer.
	r.Get("/blog/posts", h.ListPosts)
	r.Post("/blog/posts", h.CreateDraft)
	r.Get("/blog/posts/{id}", h.GetPost)
	r.Delete("/blog/posts/{id}", h.DeleteDraft)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
