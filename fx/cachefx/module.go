// Package cachefx provides an fx module for the cache store and the HTTP
// rate limiter. Requires a config.Config and a zerolog.Logger to be provided.
package cachefx

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Sternrassler/compliance-cache/pkg/cache"
	"github.com/Sternrassler/compliance-cache/pkg/config"
	"github.com/Sternrassler/compliance-cache/pkg/logging"
	"github.com/Sternrassler/compliance-cache/pkg/ratelimit"
)

// LimiterName scopes the HTTP limiter's counters in the store.
const LimiterName = "http"

// Module provides cache.Store[[]byte], cache.RateLimiter and *ratelimit.Limiter.
var Module = fx.Module("cache",
	fx.Provide(
		newStore,
		newLimiter,
	),
)

// Params holds dependencies for opening the store.
type Params struct {
	fx.In

	Config    config.Config
	Logger    zerolog.Logger
	Lifecycle fx.Lifecycle
}

// Result holds the provided store in both of its roles.
type Result struct {
	fx.Out

	Store       cache.Store[[]byte]
	RateLimiter cache.RateLimiter
}

func newStore(p Params) (Result, error) {
	logger := p.Logger.With().Str("component", logging.ComponentCache).Logger()

	store, err := cache.Open[[]byte](context.Background(), p.Config.Cache, logger)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return Result{
		Store:       store,
		RateLimiter: store,
	}, nil
}

func newLimiter(cfg config.Config, store cache.RateLimiter, logger zerolog.Logger) (*ratelimit.Limiter, error) {
	return ratelimit.NewLimiter(
		store,
		LimiterName,
		cfg.RateLimit,
		logger.With().Str("component", logging.ComponentRateLimit).Logger(),
	)
}
