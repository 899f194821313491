package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend labels.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks backend errors swallowed or returned by the store
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "set", "delete", "clear", "increment", ...
	)

	// CacheEntries tracks live entry counts seen by the embedded sweeper
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries held by the embedded store",
		},
		[]string{"kind"}, // "cache", "rate_limit"
	)

	// SweepRemoved tracks entries removed by the background sweeper
	SweepRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_sweep_removed_total",
			Help: "Total number of expired entries removed by the sweeper",
		},
		[]string{"kind"},
	)

	// RateLimitIncrements tracks counter increments by backend
	RateLimitIncrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_rate_limit_increments_total",
			Help: "Total number of rate-limit counter increments",
		},
		[]string{"backend"},
	)
)
