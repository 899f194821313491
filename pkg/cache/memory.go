package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultSweepInterval is how often the embedded store purges expired entries.
	DefaultSweepInterval = 5 * time.Minute

	// RateLimitRetention is how long a closed rate-limit window is kept
	// before the sweeper removes it.
	RateLimitRetention = time.Hour

	// SweepLogThreshold is the number of removed entries that makes a sweep
	// worth an info log line.
	SweepLogThreshold = 100

	// LargeCacheThreshold and LargeRateLimitThreshold trigger a size warning.
	LargeCacheThreshold     = 10000
	LargeRateLimitThreshold = 10000
)

// MemoryStore is the embedded Store: process-local maps behind one mutex.
//
// Expired entries are hidden by every read path; the background sweeper
// only reclaims memory.
type MemoryStore[V any] struct {
	mu      sync.Mutex
	entries map[string]CacheEntry[V]
	limits  map[string]*RateLimitEntry
	hits    int64
	misses  int64

	now    func() time.Time
	logger zerolog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ Store[any] = (*MemoryStore[any])(nil)

// NewMemoryStore creates an embedded store and starts its sweeper.
// Call Close to stop the sweeper.
func NewMemoryStore[V any](opts ...Option) *MemoryStore[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryStore[V]{
		entries: make(map[string]CacheEntry[V]),
		limits:  make(map[string]*RateLimitEntry),
		now:     o.now,
		logger:  o.logger,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.sweepLoop(ctx, o.sweepInterval)

	return s
}

// Set stores value under key.
func (s *MemoryStore[V]) Set(_ context.Context, key string, value V, ttl TTL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = CacheEntry[V]{
		Value:     value,
		ExpiresAt: ttl.ExpiresAt(s.now()),
	}
	return nil
}

// Get returns the live value for key.
func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(key, s.now())
}

func (s *MemoryStore[V]) getLocked(key string, now time.Time) (V, bool) {
	entry, ok := s.entries[key]
	if ok && !entry.IsLive(now) {
		delete(s.entries, key)
		ok = false
	}

	if !ok {
		s.misses++
		CacheMisses.WithLabelValues(BackendMemory).Inc()
		var zero V
		return zero, false
	}

	s.hits++
	CacheHits.WithLabelValues(BackendMemory).Inc()
	return entry.Value, true
}

// Has reports whether key holds a live value. Hit and miss counters are untouched.
func (s *MemoryStore[V]) Has(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if !entry.IsLive(s.now()) {
		delete(s.entries, key)
		return false
	}
	return true
}

// Delete removes key.
func (s *MemoryStore[V]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Clear drops all entries and counters and resets statistics.
func (s *MemoryStore[V]) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]CacheEntry[V])
	s.limits = make(map[string]*RateLimitEntry)
	s.hits = 0
	s.misses = 0
	return nil
}

// GetMany returns the live values for keys in order.
func (s *MemoryStore[V]) GetMany(_ context.Context, keys []string) []Result[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	results := make([]Result[V], len(keys))
	for i, key := range keys {
		value, ok := s.getLocked(key, now)
		results[i] = Result[V]{Value: value, Found: ok}
	}
	return results
}

// SetMany stores every item.
func (s *MemoryStore[V]) SetMany(_ context.Context, items []Item[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, item := range items {
		s.entries[item.Key] = CacheEntry[V]{
			Value:     item.Value,
			ExpiresAt: item.TTL.ExpiresAt(now),
		}
	}
	return nil
}

// Stats returns the number of live entries and the hit/miss counters.
func (s *MemoryStore[V]) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var live int64
	for _, entry := range s.entries {
		if entry.IsLive(now) {
			live++
		}
	}

	return newStats(live, s.hits, s.misses), nil
}

// Increment bumps the fixed-window counter for key.
func (s *MemoryStore[V]) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	RateLimitIncrements.WithLabelValues(BackendMemory).Inc()

	now := s.now()
	entry, ok := s.limits[key]
	if !ok || !entry.IsCurrent(now, window) {
		s.limits[key] = &RateLimitEntry{
			Attempts:    1,
			WindowStart: now,
			Window:      window,
		}
		return 1, nil
	}

	entry.Attempts++
	return entry.Attempts, nil
}

// CheckLimit reports whether key is still below limit in the current window.
func (s *MemoryStore[V]) CheckLimit(_ context.Context, key string, limit int64, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limits[key]
	if !ok || !entry.IsCurrent(s.now(), window) {
		return true, nil
	}
	return entry.Attempts < limit, nil
}

// Reset drops the counter for key.
func (s *MemoryStore[V]) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.limits, key)
	return nil
}

// Attempts returns the count of the current window for key. The window
// length is the one recorded when the window was opened.
func (s *MemoryStore[V]) Attempts(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limits[key]
	if !ok {
		return 0, nil
	}
	if !entry.IsCurrent(s.now(), entry.Window) {
		delete(s.limits, key)
		return 0, nil
	}
	return entry.Attempts, nil
}

// Close stops the sweeper and waits for it to exit. It is safe to call twice.
func (s *MemoryStore[V]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// sweepLoop runs sweep on every tick until ctx is cancelled.
func (s *MemoryStore[V]) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes expired entries and rate-limit windows closed for longer
// than RateLimitRetention. It returns the number of removed entries of each kind.
func (s *MemoryStore[V]) sweep() (removedEntries, removedLimits int) {
	s.mu.Lock()
	now := s.now()
	for key, entry := range s.entries {
		if !entry.IsLive(now) {
			delete(s.entries, key)
			removedEntries++
		}
	}
	for key, entry := range s.limits {
		if now.After(entry.WindowEnd().Add(RateLimitRetention)) {
			delete(s.limits, key)
			removedLimits++
		}
	}
	entryCount, limitCount := len(s.entries), len(s.limits)
	s.mu.Unlock()

	SweepRemoved.WithLabelValues("cache").Add(float64(removedEntries))
	SweepRemoved.WithLabelValues("rate_limit").Add(float64(removedLimits))
	CacheEntries.WithLabelValues("cache").Set(float64(entryCount))
	CacheEntries.WithLabelValues("rate_limit").Set(float64(limitCount))

	if removedEntries+removedLimits >= SweepLogThreshold {
		s.logger.Info().
			Int("removed_entries", removedEntries).
			Int("removed_rate_limits", removedLimits).
			Msg("Cache sweep removed expired entries")
	}

	if entryCount > LargeCacheThreshold || limitCount > LargeRateLimitThreshold {
		s.logger.Warn().
			Int("entries", entryCount).
			Int("rate_limits", limitCount).
			Msg("Embedded cache is large")
	}

	return removedEntries, removedLimits
}
