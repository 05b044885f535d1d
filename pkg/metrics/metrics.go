// Package metrics provides the centralized Prometheus metrics registry for
// the plant API client. All metrics are defined in their respective packages
// (api, ratelimit, batch, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/api):
//   - trefle_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - trefle_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - trefle_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - trefle_rate_limit_waits_total (Counter): Rate-limit suspensions taken
//   - trefle_rate_limit_wait_seconds (Histogram): Suspension durations
//
// Batch Metrics (pkg/batch):
//   - trefle_batches_flushed_total (Counter): Batches handed to the file writer
//   - trefle_records_flushed_total (Counter): Records handed to the file writer
//   - trefle_enrichment_fallbacks_total{cause} (Counter): Records kept in summary form
//   - trefle_enrichment_cache_hits_total (Counter): Detail fetches served from cache
//
// Cache Metrics (pkg/cache):
//   - trefle_cache_hits_total (Counter): Detail-record cache hits
//   - trefle_cache_misses_total (Counter): Detail-record cache misses
//   - trefle_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(trefle_cache_hits_total[5m])) /
//   (sum(rate(trefle_cache_hits_total[5m])) + sum(rate(trefle_cache_misses_total[5m])))
//
//   # Enrichment Fallback Rate
//   rate(trefle_enrichment_fallbacks_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(trefle_request_duration_seconds_bucket[5m]))
