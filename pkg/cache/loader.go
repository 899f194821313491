package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a shared load once it is detached from its callers.
const DefaultLoadTimeout = 30 * time.Second

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// WithLoadTimeout bounds each shared load. Non-positive values keep
// DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) LoaderOption {
	return func(o *loaderOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLoaderLogger sets the logger for failed cache writes.
func WithLoaderLogger(logger zerolog.Logger) LoaderOption {
	return func(o *loaderOptions) {
		o.logger = logger
	}
}

// Loader is a read-through helper over a Store. Concurrent misses for the
// same key run load once and share its result.
//
// The shared load does not inherit cancellation from any single caller:
// it runs until it finishes or the load timeout elapses, and each caller
// stops waiting when its own context is done.
type Loader[V any] struct {
	store   Store[V]
	ttl     TTL
	timeout time.Duration
	logger  zerolog.Logger
	group   singleflight.Group
}

// NewLoader creates a loader that caches loaded values for ttl.
func NewLoader[V any](store Store[V], ttl TTL, opts ...LoaderOption) *Loader[V] {
	o := loaderOptions{
		timeout: DefaultLoadTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Loader[V]{
		store:   store,
		ttl:     ttl,
		timeout: o.timeout,
		logger:  o.logger,
	}
}

// Get returns the cached value for key, or calls load and caches its result.
// Errors from load are returned and nothing is cached. A failed cache write
// is logged and does not fail the call.
func (l *Loader[V]) Get(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	var zero V

	if value, ok := l.store.Get(ctx, key); ok {
		return value, nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}
		if err := l.store.Set(loadCtx, key, value, l.ttl); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Cache write after load failed")
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("load %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, fmt.Errorf("load %q: %w", key, res.Err)
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}

// Forget drops key from the store so the next Get reloads it.
func (l *Loader[V]) Forget(ctx context.Context, key string) error {
	l.group.Forget(key)
	return l.store.Delete(ctx, key)
}
