// Package handler exposes search and index maintenance over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/logger"
)

// SessionHeader names the search session a request belongs to. A new
// search in a session supersedes the one still running in it.
const SessionHeader = "X-Search-Session"

type SearchExecutor interface {
	Execute(ctx context.Context, tok paragraph.Token, query string) (*executor.Response, error)
}

// Index is the part of the engine the HTTP API drives.
type Index interface {
	Query(tag string) index.PostingList
	Metadata(id string) (index.DocumentMetadata, bool)
	Tags() []index.TagCount
	Stats() indexer.Stats
	ReindexDocument(ctx context.Context, id, name, content string, modified time.Time) error
	RemoveDocument(ctx context.Context, id string) error
	Clear(ctx context.Context)
}

// SearchTracker receives one event per answered search.
type SearchTracker interface {
	TrackSearch(e analytics.SearchEvent)
}

type Config struct {
	MaxSessions  int
	MaxBodyBytes int64
}

type Handler struct {
	executor  SearchExecutor
	index     Index
	cache     *cache.QueryCache
	collector SearchTracker
	sessions  *lru.Cache[string, *paragraph.Tracker]
	maxBody   int64
	logger    *slog.Logger
}

// New builds the handler; queryCache and collector may be nil.
func New(exec SearchExecutor, idx Index, queryCache *cache.QueryCache, collector SearchTracker, cfg Config) (*Handler, error) {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1024
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	sessions, err := lru.New[string, *paragraph.Tracker](cfg.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("creating session table: %w", err)
	}
	return &Handler{
		executor:  exec,
		index:     idx,
		cache:     queryCache,
		collector: collector,
		sessions:  sessions,
		maxBody:   cfg.MaxBodyBytes,
		logger:    slog.Default().With("component", "search-handler"),
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/tags", h.TagPostings)
	mux.HandleFunc("GET /api/v1/tags/list", h.TagList)
	mux.HandleFunc("PUT /api/v1/index/{id}", h.Reindex)
	mux.HandleFunc("DELETE /api/v1/index/{id}", h.Remove)
	mux.HandleFunc("GET /api/v1/index/{id}/metadata", h.Metadata)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/clear", h.Clear)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers GET /api/v1/search?q=. A missing or blank q yields an
// empty result list.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query().Get("q")
	ctx := r.Context()

	tok := paragraph.Token{}
	if session := r.Header.Get(SessionHeader); session != "" {
		ctx = logger.WithSession(ctx, session)
		tracker := h.tracker(session)
		ctx, tok = tracker.Begin(ctx)
		defer tracker.End(tok)
	}
	log := logger.FromContext(ctx)

	var (
		resp     *executor.Response
		cacheHit bool
		err      error
	)
	if h.cache != nil && parser.Parse(query).Kind == parser.QueryText {
		// The shared computation must outlive any one caller, so it runs
		// untracked and currency is checked afterwards.
		detached := context.WithoutCancel(ctx)
		resp, cacheHit, err = h.cache.GetOrCompute(detached, query, func() (*executor.Response, error) {
			return h.executor.Execute(detached, paragraph.Token{}, query)
		})
		if err == nil && !tok.Current() {
			err = fmt.Errorf("text search %q: %w", query, apperrors.ErrSuperseded)
		}
	} else {
		resp, err = h.executor.Execute(ctx, tok, query)
	}

	if err != nil {
		if errors.Is(err, apperrors.ErrSuperseded) {
			log.Debug("search superseded", "query", query)
		} else {
			log.Error("search failed", "query", query, "error", err)
		}
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"kind", resp.Kind.String(),
		"results", len(resp.Results),
		"skipped", resp.Skipped,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil && resp.Kind != parser.QueryEmpty {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:     query,
			Kind:      resp.Kind.String(),
			Results:   len(resp.Results),
			Skipped:   resp.Skipped,
			Partial:   resp.Partial,
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			RequestID: logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) tracker(session string) *paragraph.Tracker {
	if t, ok := h.sessions.Get(session); ok {
		return t
	}
	t := paragraph.NewTracker()
	if prev, ok, _ := h.sessions.PeekOrAdd(session, t); ok {
		return prev
	}
	return t
}

// TagPostings answers GET /api/v1/tags?tag= with the raw posting list.
func (h *Handler) TagPostings(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'tag' is required")
		return
	}
	h.writeJSON(w, http.StatusOK, h.index.Query(tag))
}

func (h *Handler) TagList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Tags())
}

type reindexRequest struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req reindexRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ModifiedAt.IsZero() {
		req.ModifiedAt = time.Now()
	}
	if err := h.index.ReindexDocument(r.Context(), id, req.Name, req.Content, req.ModifiedAt); err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	meta, _ := h.index.Metadata(id)
	h.writeJSON(w, http.StatusOK, metadataResponse(id, meta))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.index.RemoveDocument(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	meta, ok := h.index.Metadata(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("document %q is not indexed", id))
		return
	}
	h.writeJSON(w, http.StatusOK, metadataResponse(id, meta))
}

func metadataResponse(id string, meta index.DocumentMetadata) map[string]any {
	return map[string]any{
		"documentId":      id,
		"documentName":    meta.DocumentName,
		"lastIndexedTime": meta.LastIndexedTime,
	}
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.index.Clear(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
