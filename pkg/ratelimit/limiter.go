package ratelimit

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/compliance-cache/pkg/cache"
)

// Prometheus metrics for limiter decisions.
var (
	rateLimitAllowedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_allowed_total",
		Help: "Total number of attempts admitted by a limiter",
	}, []string{"limiter"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_blocks_total",
		Help: "Total number of attempts blocked by a limiter",
	}, []string{"limiter"})

	rateLimitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_errors_total",
		Help: "Total number of limiter decisions that failed on the store",
	}, []string{"limiter"})
)

// Limiter applies one Policy to many keys.
//
// Store errors deny the request: a limiter that cannot read its counter
// does not let traffic through unchecked.
type Limiter struct {
	store  cache.RateLimiter
	name   string
	policy Policy
	logger zerolog.Logger
}

// NewLimiter creates a limiter. name scopes its counters in the store and
// labels its metrics.
func NewLimiter(store cache.RateLimiter, name string, policy Policy, logger zerolog.Logger) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if name == "" {
		return nil, fmt.Errorf("limiter name is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("limiter %s: %w", name, err)
	}

	return &Limiter{
		store:  store,
		name:   name,
		policy: policy,
		logger: logger.With().Str("limiter", name).Logger(),
	}, nil
}

// Name returns the limiter's name.
func (l *Limiter) Name() string {
	return l.name
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow checks the limit for key and, when there is room, counts the attempt.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	decision, err := l.Check(ctx, key)
	if err != nil || !decision.Allowed {
		return decision, err
	}
	return l.Record(ctx, key)
}

// Check reports whether key is within the limit without counting an attempt.
// Pair it with Record to count only attempts that actually happened, such
// as failed logins.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	counterKey := l.counterKey(key)

	ok, err := l.store.CheckLimit(ctx, counterKey, l.policy.Limit, l.policy.Window)
	if err != nil {
		return l.fail(key, "check", err)
	}

	attempts, err := l.store.Attempts(ctx, counterKey)
	if err != nil {
		return l.fail(key, "attempts", err)
	}

	if !ok {
		rateLimitBlocksTotal.WithLabelValues(l.name).Inc()
		l.logger.Warn().
			Str("key", key).
			Int64("attempts", attempts).
			Int64("limit", l.policy.Limit).
			Dur("window", l.policy.Window).
			Msg("Rate limit exceeded - blocking request")

		return newDecision(l.policy, false, attempts), nil
	}

	return newDecision(l.policy, true, attempts), nil
}

// Record counts one attempt for key. The returned decision is not allowed
// once the attempt pushed the count past the limit.
func (l *Limiter) Record(ctx context.Context, key string) (Decision, error) {
	attempts, err := l.store.Increment(ctx, l.counterKey(key), l.policy.Window)
	if err != nil {
		return l.fail(key, "increment", err)
	}

	decision := newDecision(l.policy, attempts <= l.policy.Limit, attempts)
	if decision.Allowed {
		rateLimitAllowedTotal.WithLabelValues(l.name).Inc()
	}

	if decision.NearLimit(l.policy) {
		l.logger.Debug().
			Str("key", key).
			Int64("remaining", decision.Remaining).
			Msg("Rate limit nearly exhausted")
	}

	return decision, nil
}

// Peek returns the current attempt count for key.
func (l *Limiter) Peek(ctx context.Context, key string) (int64, error) {
	attempts, err := l.store.Attempts(ctx, l.counterKey(key))
	if err != nil {
		rateLimitErrorsTotal.WithLabelValues(l.name).Inc()
		return 0, fmt.Errorf("rate limit attempts: %w", err)
	}
	return attempts, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Reset(ctx, l.counterKey(key)); err != nil {
		rateLimitErrorsTotal.WithLabelValues(l.name).Inc()
		return fmt.Errorf("rate limit reset: %w", err)
	}

	l.logger.Info().Str("key", key).Msg("Rate limit reset")
	return nil
}

func (l *Limiter) counterKey(key string) string {
	return l.name + ":" + key
}

func (l *Limiter) fail(key, operation string, err error) (Decision, error) {
	rateLimitErrorsTotal.WithLabelValues(l.name).Inc()
	l.logger.Error().
		Err(err).
		Str("key", key).
		Str("operation", operation).
		Msg("Rate limit store failed - denying request")

	return Decision{Allowed: false, RetryAfter: l.policy.Window}, fmt.Errorf("rate limit %s: %w", operation, err)
}
