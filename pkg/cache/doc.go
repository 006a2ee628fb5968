// Package cache stores catalog API responses in Redis so the HTTP client can
// revalidate them with conditional requests.
//
// The cache never answers on its own: every request still reaches the API,
// and an entry is only served after the API answered 304 Not Modified for it.
//
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Entries without a validator are not stored
// - Keys are scoped by credentials so tokens never share entries
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/artists/29735/releases",
//		QueryParams: url.Values{"page": []string{"2"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Plain request
//	}
//
// # Conditional Requests
//
//	if entry.CanRevalidate() {
//		cache.AddConditionalHeaders(req, entry)
//		// A 304 reply means entry.Data is still current
//	}
//
//	// Store a fresh response
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Metrics
//
//   - artify_cache_hits_total{layer="redis"} - Cache hits
//   - artify_cache_misses_total - Cache misses
//   - artify_cache_written_bytes_total{layer="redis"} - Bytes written
//   - artify_304_responses_total - Revalidated responses
//   - artify_conditional_requests_total - Requests sent with validators
//   - artify_cache_errors_total{operation} - Cache operation errors
package cache
