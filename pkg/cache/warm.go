package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WarmConfig bounds a Warm run.
type WarmConfig struct {
	// MaxConcurrency is the maximum number of loads in flight.
	MaxConcurrency int

	// Timeout applies to each load.
	Timeout time.Duration

	// Logger receives progress and per-key failures. The zero value
	// discards them.
	Logger zerolog.Logger
}

// DefaultWarmConfig returns the defaults used for zero fields.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
		Logger:         zerolog.Nop(),
	}
}

// KeyLoadFunc produces the value for key.
type KeyLoadFunc[V any] func(ctx context.Context, key string) (V, error)

// WarmResult counts the outcome of a Warm run.
type WarmResult struct {
	Loaded  int
	Skipped int
	Failed  int
}

// Warm loads every key not already present in store, in parallel, and
// stores the results with ttl. A failing key does not stop the others; all
// failures are returned joined together with the partial result.
func Warm[V any](ctx context.Context, store Store[V], keys []string, ttl TTL, load KeyLoadFunc[V], cfg WarmConfig) (WarmResult, error) {
	defaults := DefaultWarmConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaults.MaxConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	logger := cfg.Logger

	start := time.Now()
	logger.Info().
		Int("keys", len(keys)).
		Int("concurrency", cfg.MaxConcurrency).
		Msg("Starting cache warm")

	var (
		mu     sync.Mutex
		result WarmResult
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if store.Has(gctx, key) {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			loadCtx, cancel := context.WithTimeout(gctx, cfg.Timeout)
			value, err := load(loadCtx, key)
			cancel()
			if err == nil {
				err = store.Set(gctx, key, value, ttl)
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("Cache warm failed for key")
				result.Failed++
				errs = append(errs, fmt.Errorf("warm %q: %w", key, err))
				return nil
			}

			result.Loaded++
			if done := result.Loaded + result.Skipped; done%50 == 0 {
				logger.Info().
					Int("done", done).
					Int("total", len(keys)).
					Msg("Cache warm progress")
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	logger.Info().
		Int("loaded", result.Loaded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Cache warm complete")

	return result, errors.Join(errs...)
}
