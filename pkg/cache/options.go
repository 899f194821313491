package cache

import (
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
	logger        zerolog.Logger
	prefix        string
}

func defaultOptions() options {
	return options{
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		logger:        zerolog.Nop(),
	}
}

// Option configures a store. Options that do not apply to a backend are ignored.
type Option func(*options)

// WithClock replaces time.Now as the store's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSweepInterval sets the background sweep period.
// Non-positive values keep DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithLogger sets the logger for sweep diagnostics and swallowed backend errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPrefix namespaces every Redis key under prefix. Without a prefix the
// Redis store assumes it owns the whole database, and Clear flushes it.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}
