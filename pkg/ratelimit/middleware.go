package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// KeyFunc extracts the rate limiting key from a request.
type KeyFunc func(r *http.Request) string

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	// KeyFunc extracts the key. Default: RemoteIP.
	KeyFunc KeyFunc

	// ExcludePaths bypass rate limiting. A trailing "*" matches a prefix.
	ExcludePaths []string
}

// MiddlewareOption configures MiddlewareOptions.
type MiddlewareOption func(*MiddlewareOptions)

// WithKeyFunc sets the key extraction function.
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.KeyFunc = fn
	}
}

// WithExcludePaths sets paths that are never limited.
func WithExcludePaths(paths ...string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.ExcludePaths = paths
	}
}

// RemoteIP keys requests by the host part of RemoteAddr. Forwarding headers
// are ignored since clients can set them freely.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware limits requests with limiter. Blocked requests get 429 with a
// Retry-After header; a failing store gets 503.
func Middleware(limiter *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	options := &MiddlewareOptions{KeyFunc: RemoteIP}
	for _, opt := range opts {
		opt(options)
	}

	limit := strconv.FormatInt(limiter.Policy().Limit, 10)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded(r.URL.Path, options.ExcludePaths) {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Allow(r.Context(), options.KeyFunc(r))
			if err != nil {
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

			if !decision.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// retryAfterSeconds rounds d up to whole seconds, at least 1.
func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
