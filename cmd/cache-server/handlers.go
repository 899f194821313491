package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Sternrassler/compliance-cache/pkg/cache"
	"github.com/Sternrassler/compliance-cache/pkg/logging"
	"github.com/Sternrassler/compliance-cache/pkg/metrics"
	"github.com/Sternrassler/compliance-cache/pkg/ratelimit"
)

// maxValueBytes caps the size of a PUT body.
const maxValueBytes = 1 << 20

type handlers struct {
	store   cache.Store[[]byte]
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

type handlerParams struct {
	fx.In

	Store   cache.Store[[]byte]
	Limiter *ratelimit.Limiter
	Logger  zerolog.Logger
}

func newHandlers(p handlerParams) *handlers {
	return &handlers{
		store:   p.Store,
		limiter: p.Limiter,
		logger:  p.Logger.With().Str("component", logging.ComponentServer).Logger(),
	}
}

func (h *handlers) routes() http.Handler {
	limited := ratelimit.Middleware(h.limiter)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /ready", metrics.Instrument("ready", http.HandlerFunc(h.ready)))
	mux.Handle("GET /stats", metrics.Instrument("stats", http.HandlerFunc(h.stats)))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("GET /cache/{key}", metrics.Instrument("cache_get", limited(http.HandlerFunc(h.getValue))))
	mux.Handle("HEAD /cache/{key}", metrics.Instrument("cache_head", limited(http.HandlerFunc(h.hasValue))))
	mux.Handle("PUT /cache/{key}", metrics.Instrument("cache_put", limited(http.HandlerFunc(h.putValue))))
	mux.Handle("DELETE /cache/{key}", metrics.Instrument("cache_delete", limited(http.HandlerFunc(h.deleteValue))))
	mux.Handle("DELETE /cache", metrics.Instrument("cache_clear", http.HandlerFunc(h.clear)))

	mux.Handle("GET /ratelimit/{key}", metrics.Instrument("ratelimit_get", http.HandlerFunc(h.attempts)))
	mux.Handle("DELETE /ratelimit/{key}", metrics.Instrument("ratelimit_reset", http.HandlerFunc(h.resetLimit)))

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// ready fails when the store cannot answer a Stats query.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.store.Stats(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Readiness check failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) getValue(w http.ResponseWriter, r *http.Request) {
	value, ok := h.store.Get(r.Context(), r.PathValue("key"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(value)
}

func (h *handlers) hasValue(w http.ResponseWriter, r *http.Request) {
	if !h.store.Has(r.Context(), r.PathValue("key")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// putValue stores the request body. The optional ttl query parameter is a
// Go duration; absent or non-positive means no expiry.
func (h *handlers) putValue(w http.ResponseWriter, r *http.Request) {
	ttl := cache.NoExpiration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid ttl %q", raw), http.StatusBadRequest)
			return
		}
		ttl = cache.ExpiresIn(d)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.store.Set(r.Context(), r.PathValue("key"), body, ttl); err != nil {
		h.logger.Error().Err(err).Str("key", r.PathValue("key")).Msg("Cache write failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteValue(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("key")); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attemptsResponse struct {
	Key      string `json:"key"`
	Attempts int64  `json:"attempts"`
	Limit    int64  `json:"limit"`
	Window   string `json:"window"`
}

func (h *handlers) attempts(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	n, err := h.limiter.Peek(r.Context(), key)
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	policy := h.limiter.Policy()
	writeJSON(w, http.StatusOK, attemptsResponse{
		Key:      key,
		Attempts: n,
		Limit:    policy.Limit,
		Window:   policy.Window.String(),
	})
}

func (h *handlers) resetLimit(w http.ResponseWriter, r *http.Request) {
	if err := h.limiter.Reset(r.Context(), r.PathValue("key")); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
