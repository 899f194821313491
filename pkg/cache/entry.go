package cache

import (
	"math"
	"time"
)

// TTL is an optional time-to-live for a cache entry.
// The zero value means the entry never expires.
type TTL struct {
	d time.Duration
}

// NoExpiration keeps an entry until it is deleted or the store is cleared.
var NoExpiration = TTL{}

// ExpiresIn returns a TTL of d. Non-positive durations mean NoExpiration.
func ExpiresIn(d time.Duration) TTL {
	if d <= 0 {
		return NoExpiration
	}
	return TTL{d: d}
}

// Duration returns the TTL and whether one is set.
func (t TTL) Duration() (time.Duration, bool) {
	return t.d, t.d > 0
}

// ExpiresAt returns the absolute expiry relative to now,
// or the zero time when no TTL is set.
func (t TTL) ExpiresAt(now time.Time) time.Time {
	if t.d <= 0 {
		return time.Time{}
	}
	return now.Add(t.d)
}

// CacheEntry is a value held by the embedded store.
type CacheEntry[V any] struct {
	// Value is held by reference; the store never copies it.
	Value V

	// ExpiresAt is the absolute expiry. Zero means never.
	ExpiresAt time.Time
}

// IsLive reports whether the entry is readable at now.
func (e CacheEntry[V]) IsLive(now time.Time) bool {
	return e.ExpiresAt.IsZero() || e.ExpiresAt.After(now)
}

// RateLimitEntry is the fixed-window counter for one rate-limit key.
type RateLimitEntry struct {
	// Attempts counts increments in the current window.
	Attempts int64 `json:"attempts"`

	// WindowStart is when the current window began.
	WindowStart time.Time `json:"window_start"`

	// Window is the window length the entry was opened with.
	Window time.Duration `json:"window"`
}

// WindowEnd returns the last instant that still belongs to the window.
func (e *RateLimitEntry) WindowEnd() time.Time {
	return e.WindowStart.Add(e.Window)
}

// IsCurrent reports whether now still falls inside the window of length window.
// A window is current up to and including its end instant.
func (e *RateLimitEntry) IsCurrent(now time.Time, window time.Duration) bool {
	return !now.After(e.WindowStart.Add(window))
}

// Stats is a point-in-time snapshot of store activity.
type Stats struct {
	// Size is the number of live entries. The shared store reports the
	// key count of the whole Redis database instead.
	Size int64 `json:"size"`

	// Hits and Misses count Get results since the last Clear.
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`

	// HitRate is Hits / (Hits + Misses), rounded to two decimals.
	HitRate float64 `json:"hit_rate"`
}

func newStats(size, hits, misses int64) Stats {
	return Stats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*100) / 100
}
