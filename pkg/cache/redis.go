package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// scanBatch is the COUNT hint used when clearing a prefixed namespace.
const scanBatch = 500

// incrementScript bumps a fixed-window counter and arms its expiry when the
// key has none, so the window starts at the first increment.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisStore is the shared Store backed by Redis. Values are JSON encoded and
// expiry is enforced by Redis itself.
//
// Hit and miss counters are local to the process; Size is the key count of
// the whole Redis database.
type RedisStore[V any] struct {
	redis  redis.UniversalClient
	keys   Keyspace
	logger zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Store[any] = (*RedisStore[any])(nil)

// NewRedisStore creates a shared store on top of redisClient. The store owns
// the client and closes it in Close.
func NewRedisStore[V any](redisClient redis.UniversalClient, opts ...Option) *RedisStore[V] {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &RedisStore[V]{
		redis:  redisClient,
		keys:   Keyspace{Prefix: o.prefix},
		logger: o.logger,
	}
}

// Set encodes value and stores it with the given TTL.
func (s *RedisStore[V]) Set(ctx context.Context, key string, value V, ttl TTL) error {
	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "set").Inc()
		return fmt.Errorf("marshal cache value: %w", err)
	}

	expiration, _ := ttl.Duration()
	if err := s.redis.Set(ctx, s.keys.CacheKey(key), data, expiration).Err(); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Get returns the decoded value for key. Connection and decode errors are
// logged and reported as a miss.
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool) {
	cacheKey := s.keys.CacheKey(key)

	data, err := s.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			CacheErrors.WithLabelValues(BackendRedis, "get").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache get failed, treating as miss")
		}
		return s.miss()
	}

	value, err := s.decode(ctx, key, data)
	if err != nil {
		return s.miss()
	}

	return s.hit(value)
}

// Has reports whether key exists. Hit and miss counters are untouched.
func (s *RedisStore[V]) Has(ctx context.Context, key string) bool {
	n, err := s.redis.Exists(ctx, s.keys.CacheKey(key)).Result()
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "has").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache exists check failed")
		return false
	}
	return n > 0
}

// Delete removes key.
func (s *RedisStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.keys.CacheKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes the namespace and resets the hit and miss counters.
//
// Without a prefix this flushes the whole Redis database, including keys
// written by anyone else sharing it.
func (s *RedisStore[V]) Clear(ctx context.Context) error {
	pattern := s.keys.Pattern()

	if pattern == "" {
		if err := s.redis.FlushDB(ctx).Err(); err != nil {
			CacheErrors.WithLabelValues(BackendRedis, "clear").Inc()
			return fmt.Errorf("redis flushdb: %w", err)
		}
	} else if err := s.deleteMatching(ctx, pattern); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "clear").Inc()
		return err
	}

	s.hits.Store(0)
	s.misses.Store(0)

	s.logger.Info().Str("pattern", pattern).Msg("Cache cleared")
	return nil
}

func (s *RedisStore[V]) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}

		owned := keys[:0]
		for _, key := range keys {
			if s.keys.Owns(key) {
				owned = append(owned, key)
			}
		}

		if len(owned) > 0 {
			if err := s.redis.Del(ctx, owned...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetMany fetches every key in one MGET round trip.
func (s *RedisStore[V]) GetMany(ctx context.Context, keys []string) []Result[V] {
	results := make([]Result[V], len(keys))
	if len(keys) == 0 {
		return results
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = s.keys.CacheKey(key)
	}

	values, err := s.redis.MGet(ctx, cacheKeys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "get_many").Inc()
		s.logger.Warn().Err(err).Int("keys", len(keys)).Msg("Cache mget failed, treating as misses")
		for range keys {
			s.miss()
		}
		return results
	}

	for i, raw := range values {
		payload, ok := raw.(string)
		if !ok {
			s.miss()
			continue
		}

		value, err := s.decode(ctx, keys[i], []byte(payload))
		if err != nil {
			s.miss()
			continue
		}

		s.hit(value)
		results[i] = Result[V]{Value: value, Found: true}
	}

	return results
}

// SetMany writes every item in one pipeline. A failed pipeline may leave part
// of the batch written.
func (s *RedisStore[V]) SetMany(ctx context.Context, items []Item[V]) error {
	if len(items) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item.Value)
		if err != nil {
			CacheErrors.WithLabelValues(BackendRedis, "set_many").Inc()
			return fmt.Errorf("marshal cache value %q: %w", item.Key, err)
		}
		expiration, _ := item.TTL.Duration()
		pipe.Set(ctx, s.keys.CacheKey(item.Key), data, expiration)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "set_many").Inc()
		return fmt.Errorf("redis pipeline set: %w", err)
	}

	return nil
}

// Stats reports the database key count and the local hit/miss counters.
func (s *RedisStore[V]) Stats(ctx context.Context) (Stats, error) {
	size, err := s.redis.DBSize(ctx).Result()
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "stats").Inc()
		return Stats{}, fmt.Errorf("redis dbsize: %w", err)
	}

	return newStats(size, s.hits.Load(), s.misses.Load()), nil
}

// Increment atomically bumps the counter for key. Concurrent increments from
// any number of processes are never lost.
func (s *RedisStore[V]) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	count, err := incrementScript.Run(ctx, s.redis, []string{s.keys.RateLimitKey(key)}, windowMs).Int64()
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "increment").Inc()
		return 0, fmt.Errorf("redis increment: %w", err)
	}

	RateLimitIncrements.WithLabelValues(BackendRedis).Inc()
	return count, nil
}

// CheckLimit reads the counter for key. The read is not atomic with a later
// Increment, so concurrent callers may overshoot limit slightly. The window
// argument is unused; the counter lives until the expiry armed by the first
// Increment.
func (s *RedisStore[V]) CheckLimit(ctx context.Context, key string, limit int64, _ time.Duration) (bool, error) {
	attempts, err := s.Attempts(ctx, key)
	if err != nil {
		return false, err
	}
	return attempts < limit, nil
}

// Reset deletes the counter for key.
func (s *RedisStore[V]) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.keys.RateLimitKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "reset").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Attempts returns the counter for key; an elapsed window has already
// expired in Redis and reads as 0.
func (s *RedisStore[V]) Attempts(ctx context.Context, key string) (int64, error) {
	attempts, err := s.redis.Get(ctx, s.keys.RateLimitKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		CacheErrors.WithLabelValues(BackendRedis, "attempts").Inc()
		return 0, fmt.Errorf("redis get attempts: %w", err)
	}
	return attempts, nil
}

// Close closes the Redis client.
func (s *RedisStore[V]) Close() error {
	return s.redis.Close()
}

// decode unmarshals a payload. Corrupt payloads are deleted so the next
// Set can replace them.
func (s *RedisStore[V]) decode(ctx context.Context, key string, data []byte) (V, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "decode").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache entry could not be decoded, treating as miss")
		_ = s.redis.Del(ctx, s.keys.CacheKey(key)).Err()
		return value, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return value, nil
}

func (s *RedisStore[V]) hit(value V) (V, bool) {
	s.hits.Inc()
	CacheHits.WithLabelValues(BackendRedis).Inc()
	return value, true
}

func (s *RedisStore[V]) miss() (V, bool) {
	s.misses.Inc()
	CacheMisses.WithLabelValues(BackendRedis).Inc()
	var zero V
	return zero, false
}
