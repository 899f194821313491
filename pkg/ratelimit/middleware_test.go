package ratelimit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_Basic(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, Policy{Limit: 3, Window: 90 * time.Second})
	handler := Middleware(limiter)(okHandler())

	for i := 0; i < 3; i++ {
		rec := serve(handler, "/api", "192.168.1.1:12345")
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "3" {
			t.Errorf("X-RateLimit-Limit = %q, want 3", got)
		}
	}

	rec := serve(handler, "/api", "192.168.1.1:54321")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want 90", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	// A different client has its own window
	if rec := serve(handler, "/api", "10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_ExcludePaths(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, Policy{Limit: 1, Window: time.Minute})
	handler := Middleware(limiter, WithExcludePaths("/health", "/metrics*"))(okHandler())

	serve(handler, "/api", "192.168.1.1:1")
	if rec := serve(handler, "/api", "192.168.1.1:1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}

	for _, path := range []string{"/health", "/metrics", "/metrics/extra"} {
		if rec := serve(handler, path, "192.168.1.1:1"); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestMiddleware_KeyFunc(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, Policy{Limit: 1, Window: time.Minute})
	byAPIKey := func(r *http.Request) string { return r.Header.Get("X-API-Key") }
	handler := Middleware(limiter, WithKeyFunc(byAPIKey))(okHandler())

	request := func(key, addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.RemoteAddr = addr
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("k1", "1.1.1.1:1"); code != http.StatusOK {
		t.Errorf("first request: got %d", code)
	}
	// Same key from another address shares the counter
	if code := request("k1", "2.2.2.2:1"); code != http.StatusTooManyRequests {
		t.Errorf("same key: expected 429, got %d", code)
	}
}

func TestMiddleware_StoreError(t *testing.T) {
	limiter, _ := NewLimiter(brokenStore{err: errors.New("down")}, "api", Policy{Limit: 5, Window: time.Minute}, testLogger)
	handler := Middleware(limiter)(okHandler())

	rec := serve(handler, "/api", "192.168.1.1:1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.1:8080", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"192.168.1.1", "192.168.1.1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := RemoteIP(req); got != tt.want {
				t.Errorf("RemoteIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "1"},
		{500 * time.Millisecond, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
		{time.Minute, "60"},
	}

	for _, tt := range tests {
		if got := retryAfterSeconds(tt.d); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
