//go:build integration

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diegoralt/Artify/pkg/cache"
	"github.com/diegoralt/Artify/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var requestsMade, conditionalRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsMade.Add(1)
		quota(w)

		if r.Header.Get("If-None-Match") != "" {
			conditionalRequests.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", `"test-etag-123"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 3840, "name": "Radiohead"}`))
	}))
	defer server.Close()

	client := newTestClient(t, redisClient, server.URL)
	ctx := context.Background()

	first, err := client.GetArtist(ctx, 3840)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if requestsMade.Load() != 1 {
		t.Errorf("After request 1: requestsMade = %d, want 1", requestsMade.Load())
	}

	second, err := client.GetArtist(ctx, 3840)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}

	// Revalidation still reaches the API
	if requestsMade.Load() != 2 {
		t.Errorf("After request 2: requestsMade = %d, want 2", requestsMade.Load())
	}
	if conditionalRequests.Load() != 1 {
		t.Errorf("conditionalRequests = %d, want 1", conditionalRequests.Load())
	}
	if second.Name != first.Name {
		t.Errorf("second = %+v, want %+v", second, first)
	}

	cachedEntry, err := client.GetCache().Get(ctx, cache.CacheKey{Endpoint: "/artists/3840"})
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if cachedEntry.ETag != `"test-etag-123"` {
		t.Errorf("Cached ETag = %q, want %q", cachedEntry.ETag, `"test-etag-123"`)
	}
}

func TestIntegration_RateLimitSharedState(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ratelimit.HeaderLimit, "60")
		w.Header().Set(ratelimit.HeaderUsed, "59")
		w.Header().Set(ratelimit.HeaderRemaining, "1")
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	writer := newTestClient(t, redisClient, server.URL)
	reader := newTestClient(t, redisClient, server.URL)
	ctx := context.Background()

	if _, err := writer.GetRelease(ctx, 1); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// The second client sees the exhausted quota and waits for the window
	shortCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err := reader.GetRelease(shortCtx, 1)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected request to wait for the window, got %v", err)
	}
}

func TestIntegration_ScopedCacheKeys(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"id": 5}`))
	}))
	defer server.Close()

	cfg := testConfig(redisClient, server.URL)
	cfg.Token = "token-a"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	if _, err := client.GetRelease(ctx, 5); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if _, err := client.GetCache().Get(ctx, cache.CacheKey{Endpoint: "/releases/5"}); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("unscoped key should miss, got %v", err)
	}
	if _, err := client.GetCache().Get(ctx, cache.CacheKey{Endpoint: "/releases/5", Scope: client.cacheScope}); err != nil {
		t.Errorf("scoped key lookup failed: %v", err)
	}
}
