// Package cache provides a key-value cache with TTL expiry and a fixed-window
// rate limiter behind one contract, backed either by process memory or by Redis.
//
// Both backends implement Store:
//
//   - MemoryStore keeps entries in a mutex-guarded map and hides expired
//     entries on every read. A background sweeper reclaims memory; Close stops it.
//   - RedisStore JSON-encodes values and lets Redis enforce expiry. Rate-limit
//     counters are bumped by a Lua script so increments from many processes
//     are never lost.
//
// # Basic Usage
//
//	store, err := cache.Open[Report](ctx, cache.Config{
//		Backend: cache.BackendRedis,
//		Redis:   cache.RedisConfig{Addr: "localhost:6379"},
//		Prefix:  "grc",
//	}, logger)
//	if err != nil {
//		return err // unreachable Redis is fatal
//	}
//	defer store.Close()
//
//	if err := store.Set(ctx, "report:42", report, cache.ExpiresIn(5*time.Minute)); err != nil {
//		logger.Warn().Err(err).Msg("cache write failed")
//	}
//
//	if report, ok := store.Get(ctx, "report:42"); ok {
//		// hit
//	}
//
// # Rate Limiting
//
// CheckLimit never changes state, so callers check before doing the work and
// increment only when it went ahead:
//
//	ok, err := store.CheckLimit(ctx, "login:alice", 5, time.Minute)
//	if err != nil || !ok {
//		return errTooManyAttempts // treat errors as over the limit
//	}
//	if failedLogin {
//		store.Increment(ctx, "login:alice", time.Minute)
//	}
//
// # Error Policy
//
// Get, GetMany and Has never return errors: a broken cache reads as a miss and
// the failure is logged. Writes and rate-limit operations return errors.
//
// # Metrics
//
//   - cache_hits_total{backend} / cache_misses_total{backend}
//   - cache_errors_total{backend, operation}
//   - cache_entries{kind} - embedded store sizes seen by the sweeper
//   - cache_sweep_removed_total{kind}
//   - cache_rate_limit_increments_total{backend}
//
// Clear on a RedisStore without a prefix runs FLUSHDB. Do not share such a
// database with other tenants.
package cache
