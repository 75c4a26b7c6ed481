package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/blog"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/recordservice"
	"github.com/starford/raido/internal/weather"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *recordservice.Service
	weather *weather.Client
	blog    *blog.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recordservice.Service, wc *weather.Client, bs *blog.Service) *Handler {
	return &Handler{svc: svc, weather: wc, blog: bs}
}

// ListRecords handles GET /api/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, skipped, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, http.StatusOK, RecordListResponse{
		Records: records,
		Total:   len(records),
		Skipped: skipped,
	})
}

// GetRecord handles GET /api/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok, err := h.svc.Get(r.Context(), id)
	if err != nil {
		slog.Error("get record failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.Header().Set("ETag", `"`+recordservice.ETag(rec)+`"`)
	writeJSON(w, http.StatusOK, rec)
}

// CreateRecord handles POST /api/records.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	rec, err := h.svc.Add(r.Context(), record.Fields{Title: req.Title, Body: req.Body})
	if err != nil {
		slog.Error("create record failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInsufficientStorage, errorBody("write failed"))
		return
	}
	w.Header().Set("ETag", `"`+recordservice.ETag(rec)+`"`)
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateRecord handles PUT /api/records/{id} with optional optimistic
// concurrency via If-Match.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == nil && req.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("at least one of title or body is required"))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	rec, err := h.svc.Update(r.Context(), id, record.Patch{Title: req.Title, Body: req.Body}, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("etag mismatch"))
		default:
			slog.Error("update record failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("ETag", `"`+recordservice.ETag(rec)+`"`)
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/{id}. Deleting a nonexistent
// id succeeds.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		slog.Error("delete record failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRecords handles DELETE /api/records.
func (h *Handler) ClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		slog.Error("clear records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchRecords handles GET /api/search.
func (h *Handler) SearchRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	records, skipped, err := h.svc.Search(r.Context(), q)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{
		Records: records,
		Total:   len(records),
		Skipped: skipped,
	})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SettingsResponse{Backend: h.svc.Backend(r.Context())})
}

// UpdateSettings handles PUT /api/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SwitchBackend(r.Context(), req.Backend); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Backend: req.Backend})
}

// GetWeather handles GET /api/weather.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("lat and lon query parameters are required"))
		return
	}
	report, err := h.weather.Current(r.Context(), lat, lon)
	if err != nil {
		slog.Error("weather lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("weather lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListPosts handles GET /api/blog/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.List(r.Context())
	if err != nil {
		slog.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts})
}

// GetPost handles GET /api/blog/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, ok, err := h.blog.Get(r.Context(), id)
	if err != nil {
		slog.Error("get post failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("post lookup failed"))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreateDraft handles POST /api/blog/posts.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	post, err := h.blog.SaveDraft(r.Context(), record.Fields{Title: req.Title, Body: req.Body})
	if err != nil {
		slog.Error("create draft failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInsufficientStorage, errorBody("write failed"))
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// DeleteDraft handles DELETE /api/blog/posts/{id}.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.blog.DeleteDraft(r.Context(), id); err != nil {
		slog.Error("delete draft failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
