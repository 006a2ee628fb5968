package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is prepended to every Redis key written by the cache.
const KeyPrefix = "artify:http"

// CacheKey identifies one cached catalog response.
type CacheKey struct {
	// Endpoint is the API path (e.g., "/artists/29735/releases")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values

	// Scope separates entries fetched with different credentials ("" for anonymous)
	Scope string
}

// String generates a deterministic cache key string.
// Format: artify:http:endpoint:query1=val1:query2=val2[:scope=...]
//
// Example:
//
//	artify:http:artists/29735/releases:page=2:per_page=30
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	if k.Scope != "" {
		parts = append(parts, "scope="+k.Scope)
	}

	return strings.Join(parts, ":")
}
