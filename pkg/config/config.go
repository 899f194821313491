// Package config loads the cache service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/compliance-cache/pkg/cache"
	"github.com/Sternrassler/compliance-cache/pkg/logging"
	"github.com/Sternrassler/compliance-cache/pkg/ratelimit"
)

// Config is the complete service configuration.
type Config struct {
	Cache     cache.Config
	Logging   logging.Config
	RateLimit ratelimit.Policy

	// Port is the HTTP listen port of cache-server.
	Port string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Cache:     cache.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
		RateLimit: ratelimit.Policy{Limit: 100, Window: time.Minute},
		Port:      "8080",
	}
}

// Load reads the configuration from environment variables:
//
//	CACHE_BACKEND          memory | redis (default memory)
//	REDIS_ADDR             host:port (default localhost:6379)
//	REDIS_PASSWORD         optional
//	REDIS_DB               logical database (default 0)
//	CACHE_PREFIX           Redis key namespace (default none)
//	CACHE_SWEEP_INTERVAL   embedded sweeper period (default 5m)
//	CACHE_CONNECT_RETRIES  startup ping attempts (default 3)
//	LOG_LEVEL              debug | info | warn | error (default info)
//	LOG_PRETTY             console output (default false)
//	PORT                   HTTP port (default 8080)
//	RATE_LIMIT             requests per window (default 100)
//	RATE_WINDOW            window length (default 1m)
//
// All malformed values are reported together.
func Load() (Config, error) {
	cfg := Default()
	var errs []error

	cfg.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.Redis.Addr = getEnv("REDIS_ADDR", cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = getInt("REDIS_DB", cfg.Cache.Redis.DB, &errs)
	cfg.Cache.Prefix = getEnv("CACHE_PREFIX", cfg.Cache.Prefix)
	cfg.Cache.SweepInterval = getDuration("CACHE_SWEEP_INTERVAL", cfg.Cache.SweepInterval, &errs)
	cfg.Cache.ConnectRetry.MaxAttempts = getInt("CACHE_CONNECT_RETRIES", cfg.Cache.ConnectRetry.MaxAttempts, &errs)

	cfg.Logging.Level = logging.LogLevel(getEnv("LOG_LEVEL", string(cfg.Logging.Level)))
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.Logging.Pretty = getBool("LOG_PRETTY", cfg.Logging.Pretty, &errs)

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RateLimit.Limit = int64(getInt("RATE_LIMIT", int(cfg.RateLimit.Limit), &errs))
	cfg.RateLimit.Window = getDuration("RATE_WINDOW", cfg.RateLimit.Window, &errs)

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	return cfg, errors.Join(errs...)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND: %w: %q", cache.ErrUnknownBackend, c.Cache.Backend))
	}

	if c.Cache.Backend == cache.BackendRedis && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
	}
	if c.Cache.ConnectRetry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("CACHE_CONNECT_RETRIES must be >= 1 (got %d)", c.Cache.ConnectRetry.MaxAttempts))
	}
	if c.Cache.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive (got %v)", c.Cache.SweepInterval))
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT/RATE_WINDOW: %w", err))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}
