package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for detail-record cache operations.
var (
	// CacheHits counts detail records served from Redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_cache_hits_total",
		Help: "Total detail-record cache hits",
	})

	// CacheMisses counts lookups that fell through to the API.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_cache_misses_total",
		Help: "Total detail-record cache misses",
	})

	// CacheErrors counts failed cache operations by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trefle_cache_errors_total",
		Help: "Total detail-record cache errors by operation",
	}, []string{"operation"})
)
