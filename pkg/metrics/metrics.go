// Package metrics exposes the Prometheus registry used by the aggregation layer.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, fanout, pagination) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry that Handler serves.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Fan-Out Metrics (pkg/fanout):
//   - artify_fanout_calls_total{operation, result} (Counter): Enrichment calls by outcome (ok, failed, skipped)
//   - artify_fanout_duration_seconds{operation} (Histogram): Wall time of one fan-out batch
//
// Pagination Metrics (pkg/pagination):
//   - artify_pages_loaded_total{result} (Counter): Page loads by outcome (ok, failed)
//   - artify_page_rollbacks_total (Counter): Next-page failures that restored the cursor
//   - artify_stale_results_discarded_total (Counter): Results dropped because a newer load superseded them
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artify_ratelimit_remaining (Gauge): Requests remaining in the current window
//   - artify_ratelimit_blocks_total (Counter): Requests held until the window reset
//   - artify_ratelimit_throttles_total (Counter): Requests throttled in the warning band
//
// Cache Metrics (pkg/cache):
//   - artify_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - artify_cache_misses_total (Counter): Cache misses
//   - artify_cache_written_bytes_total{layer="redis"} (Counter): Bytes written to the cache
//   - artify_304_responses_total (Counter): 304 Not Modified responses
//   - artify_conditional_requests_total (Counter): Conditional requests sent
//   - artify_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - artify_requests_total{endpoint, status} (Counter): Requests by endpoint template and HTTP status
//   - artify_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint template
//   - artify_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - artify_retries_total{error_class} (Counter): Retry attempts by error class
//   - artify_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - artify_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Enrichment failure ratio per operation
//   sum by (operation) (rate(artify_fanout_calls_total{result="failed"}[5m])) /
//   sum by (operation) (rate(artify_fanout_calls_total[5m]))
//
//   # Quota status
//   artify_ratelimit_remaining < 10
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(artify_request_duration_seconds_bucket[5m]))
//
//   # Revalidation hit rate
//   rate(artify_304_responses_total[5m]) / rate(artify_conditional_requests_total[5m])
