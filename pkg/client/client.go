// Package client provides the HTTP client for the catalog API with request
// pacing, quota tracking, conditional-request caching and retries.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diegoralt/Artify/pkg/cache"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/diegoralt/Artify/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for catalog client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artify_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artify_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artify_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public catalog API.
const DefaultBaseURL = "https://api.discogs.com"

// Client is the catalog API client.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retryConfig func(ErrorClass) RetryConfig
	cacheScope  string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for conditional-request caching and shared quota state.
	// Optional: without it quota state is per process and nothing is cached.
	Redis *redis.Client

	// BaseURL of the API, without trailing slash
	BaseURL string

	// Token is the personal access token sent as "Discogs token=<token>".
	// Optional; anonymous requests get a lower quota.
	Token string

	// UserAgent header (REQUIRED by the API)
	// Format: "AppName/Version"
	UserAgent string

	// Pacing
	RequestsPerMinute int // Outbound token bucket refill rate
	Burst             int // Token bucket size

	// Retry
	MaxRetries     int           // Attempts per request, including the first
	InitialBackoff time.Duration // First backoff for server errors; other classes scale with it

	// Timeout of a single HTTP attempt
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:             redis,
		BaseURL:           DefaultBaseURL,
		UserAgent:         userAgent,
		RequestsPerMinute: 60,
		Burst:             10,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		Timeout:           30 * time.Second,
	}
}

// New creates a new catalog API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("requests_per_minute must be > 0 (got %d)", cfg.RequestsPerMinute)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := logging.NewLogger("catalog-client")

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.Burst),
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		retryConfig: scaledRetryConfig(cfg.MaxRetries, cfg.InitialBackoff),
		config:      cfg,
		logger:      logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	if cfg.Token != "" {
		sum := sha256.Sum256([]byte(cfg.Token))
		c.cacheScope = hex.EncodeToString(sum[:4])
	}

	return c, nil
}

// Do performs an HTTP request with pacing, quota tracking, caching and retries.
// Responses with 4xx status are returned as-is; exhausted retries and
// network failures are returned as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, req.URL.Path)
}

// do is Do with an explicit metrics label for the endpoint.
func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	ctx := req.Context()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Look up a cached entry to revalidate
	cacheKey := cache.CacheKey{
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
		Scope:       c.cacheScope,
	}

	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	// Step 2: Make the request conditional if the entry has a validator
	if cachedEntry.CanRevalidate() {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Identify ourselves
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.config.Token)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing catalog request")

	// Step 4: Execute with retries; every attempt waits for pacing and quota
	var resp *http.Response
	retryErr := retryWithConfig(ctx, c.retryConfig, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for request slot: %w", err)
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limit window: %w", err)
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		if resp.StatusCode < 400 {
			return nil
		}

		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Catalog request error")

		if !shouldRetry(errClass) {
			// Let the caller read the error body
			return nil
		}

		resp.Body.Close()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}, classifyError)

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 5: 304 Not Modified, serve the revalidated entry
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		newExpires := time.Now().Add(cache.DefaultTTL)
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if parsed, err := http.ParseTime(expiresStr); err == nil {
				newExpires = parsed
			}
		}
		if err := c.cache.Touch(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to extend cache entry")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	if resp.StatusCode < 400 {
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	}

	// Step 6: Store successful responses for later revalidation
	if resp.StatusCode == http.StatusOK && c.cache != nil {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else if entry.CanRevalidate() {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request to an API path relative to BaseURL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases the client's idle connections. The Redis client is owned
// by the caller and left open.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the quota tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
