package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/compliance-cache/internal/retry"
)

// RedisConfig holds the connection parameters of the shared store.
type RedisConfig struct {
	// Addr is host:port of the Redis server.
	Addr string

	// Password is optional.
	Password string

	// DB selects the Redis logical database.
	DB int
}

// Config selects and configures a backend.
type Config struct {
	// Backend is BackendMemory or BackendRedis.
	Backend string

	// Redis is used when Backend is BackendRedis.
	Redis RedisConfig

	// Prefix namespaces Redis keys. See WithPrefix.
	Prefix string

	// SweepInterval is the embedded sweeper period (0 = default).
	SweepInterval time.Duration

	// ConnectRetry is the backoff used for the startup ping.
	ConnectRetry retry.Config
}

// DefaultConfig returns an embedded-store configuration.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendMemory,
		Redis:         RedisConfig{Addr: "localhost:6379"},
		SweepInterval: DefaultSweepInterval,
		ConnectRetry:  retry.DefaultConfig(),
	}
}

// Open builds the Store selected by cfg.Backend.
//
// For the Redis backend the server is pinged first; an unreachable server is
// a fatal ErrBackendUnavailable rather than a silently degraded store.
func Open[V any](ctx context.Context, cfg Config, logger zerolog.Logger) (Store[V], error) {
	opts := []Option{
		WithLogger(logger),
		WithPrefix(cfg.Prefix),
		WithSweepInterval(cfg.SweepInterval),
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendMemory, "":
		logger.Info().
			Str("backend", BackendMemory).
			Dur("sweep_interval", cfg.SweepInterval).
			Msg("Opening embedded cache store")
		return NewMemoryStore[V](opts...), nil

	case BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := Ping(ctx, redisClient, cfg.ConnectRetry); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, cfg.Redis.Addr, err)
		}

		logger.Info().
			Str("backend", BackendRedis).
			Str("addr", cfg.Redis.Addr).
			Int("db", cfg.Redis.DB).
			Str("prefix", cfg.Prefix).
			Msg("Connected to shared cache store")
		return NewRedisStore[V](redisClient, opts...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Ping checks that redisClient answers, retrying with backoff.
func Ping(ctx context.Context, redisClient redis.UniversalClient, cfg retry.Config) error {
	return retry.Do(ctx, cfg, "redis_ping", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
}
