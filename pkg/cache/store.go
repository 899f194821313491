package cache

import (
	"context"
	"time"
)

// Item is one write in a SetMany batch.
type Item[V any] struct {
	Key   string
	Value V
	TTL   TTL
}

// Result is one read in a GetMany batch.
type Result[V any] struct {
	Value V
	Found bool
}

// RateLimiter is the fixed-window counter half of a Store.
type RateLimiter interface {
	// Increment bumps the counter for key and returns the new count.
	// A missing or elapsed window starts over at 1.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// CheckLimit reports whether key has used fewer than limit attempts in
	// the current window. It never modifies the counter.
	//
	// The Redis backend ignores window here: the current window is the one
	// armed by the first Increment, and it ends when that key's TTL does.
	// The memory backend measures the counter against window.
	CheckLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)

	// Reset drops the counter for key regardless of window state.
	Reset(ctx context.Context, key string) error

	// Attempts returns the count in the current window, 0 if none.
	Attempts(ctx context.Context, key string) (int64, error)
}

// Store is the cache and rate-limit contract shared by the embedded and the
// Redis backends. Implementations are safe for concurrent use.
//
// Reads are best effort: Get, GetMany and Has report backend failures as
// misses and never return an error.
type Store[V any] interface {
	RateLimiter

	// Set stores value under key, replacing any previous value and expiry.
	Set(ctx context.Context, key string, value V, ttl TTL) error

	// Get returns the live value for key. Every call counts one hit or miss.
	Get(ctx context.Context, key string) (V, bool)

	// Has reports whether key holds a live value without counting a hit or miss.
	Has(ctx context.Context, key string) bool

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry and rate-limit counter in the namespace and
	// resets the hit and miss counters.
	Clear(ctx context.Context) error

	// GetMany is Get for each key, returned in the order of keys.
	GetMany(ctx context.Context, keys []string) []Result[V]

	// SetMany is Set for each item. The batch is not atomic.
	SetMany(ctx context.Context, items []Item[V]) error

	// Stats returns a snapshot of size and hit/miss counters.
	Stats(ctx context.Context) (Stats, error)

	// Close releases background work and connections owned by the store.
	Close() error
}
