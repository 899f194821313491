package cache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/compliance-cache/internal/testutil"
)

func newTestMemoryStore(t *testing.T, opts ...Option) (*MemoryStore[string], *testutil.Clock) {
	t.Helper()

	clock := testutil.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore[string](append([]Option{WithClock(clock.Now)}, opts...)...)
	t.Cleanup(func() { store.Close() })

	return store, clock
}

func TestMemoryStore_HoldsValueByReference(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	store := NewMemoryStore[*[]int](WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	value := &[]int{1, 2}
	store.Set(ctx, "k", value, NoExpiration)

	got, ok := store.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() missed a stored value")
	}
	if got != value {
		t.Error("Get() returned a copy, want the stored pointer")
	}
}

func TestMemoryStore_GetDeletesExpiredEntry(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	store.Set(ctx, "k", "v", ExpiresIn(time.Second))
	clock.Advance(2 * time.Second)

	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("Get() returned an expired entry")
	}

	store.mu.Lock()
	_, present := store.entries["k"]
	store.mu.Unlock()
	if present {
		t.Error("expired entry still present after Get")
	}
}

func TestMemoryStore_StatsCountsLiveEntriesOnly(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	store.Set(ctx, "short", "v", ExpiresIn(time.Second))
	store.Set(ctx, "long", "v", ExpiresIn(time.Hour))
	store.Set(ctx, "forever", "v", NoExpiration)

	clock.Advance(time.Minute)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}
}

func TestMemoryStore_AttemptsUsesRecordedWindow(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	store.Increment(ctx, "short", 10*time.Second)
	store.Increment(ctx, "long", 2*time.Hour)

	clock.Advance(90 * time.Minute)

	tests := []struct {
		key  string
		want int64
	}{
		{key: "short", want: 0},
		{key: "long", want: 1},
		{key: "never", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := store.Attempts(ctx, tt.key)
			if err != nil {
				t.Fatalf("Attempts failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Attempts(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestMemoryStore_WindowBoundaryIsInclusive(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	store.Increment(ctx, "u", time.Minute)
	clock.Advance(time.Minute)

	got, _ := store.Increment(ctx, "u", time.Minute)
	if got != 2 {
		t.Errorf("Increment() at window end = %d, want 2", got)
	}

	clock.Advance(time.Nanosecond)

	got, _ = store.Increment(ctx, "u", time.Minute)
	if got != 1 {
		t.Errorf("Increment() after window end = %d, want 1", got)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store, clock := newTestMemoryStore(t)
	ctx := context.Background()

	store.Set(ctx, "expired", "v", ExpiresIn(time.Second))
	store.Set(ctx, "live", "v", ExpiresIn(time.Hour))
	store.Set(ctx, "forever", "v", NoExpiration)
	store.Increment(ctx, "stale", time.Minute)

	clock.Advance(30 * time.Minute)
	store.Increment(ctx, "recent", time.Minute)

	removedEntries, removedLimits := store.sweep()
	if removedEntries != 1 {
		t.Errorf("removed entries = %d, want 1", removedEntries)
	}
	if removedLimits != 0 {
		t.Errorf("removed rate limits = %d, want 0 (inside retention)", removedLimits)
	}

	clock.Advance(RateLimitRetention)

	_, removedLimits = store.sweep()
	if removedLimits != 1 {
		t.Errorf("removed rate limits = %d, want 1", removedLimits)
	}

	store.mu.Lock()
	_, staleLeft := store.limits["stale"]
	_, recentLeft := store.limits["recent"]
	store.mu.Unlock()
	if staleLeft {
		t.Error("stale rate-limit entry survived the sweep")
	}
	if !recentLeft {
		t.Error("recent rate-limit entry was swept too early")
	}
}

func TestMemoryStore_SweepLogsLargeRemovals(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)
	store, clock := newTestMemoryStore(t, WithLogger(logger))
	ctx := context.Background()

	for i := 0; i < SweepLogThreshold; i++ {
		store.Set(ctx, strings.Repeat("k", i+1), "v", ExpiresIn(time.Second))
	}
	clock.Advance(time.Minute)

	store.sweep()

	if !strings.Contains(buf.String(), "Cache sweep removed expired entries") {
		t.Errorf("expected sweep summary log, got %q", buf.String())
	}
}

func TestMemoryStore_SweeperRunsInBackground(t *testing.T) {
	store := NewMemoryStore[string](WithSweepInterval(10 * time.Millisecond))
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "k", "v", ExpiresIn(time.Millisecond))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		n := len(store.entries)
		store.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("background sweeper never removed the expired entry")
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore[string](WithSweepInterval(time.Millisecond))

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-store.done:
	default:
		t.Error("sweeper still running after Close")
	}

	// Second Close must not block or panic
	if err := store.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}
