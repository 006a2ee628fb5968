package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Response headers carrying the quota.
const (
	HeaderLimit     = "X-Discogs-Ratelimit"
	HeaderUsed      = "X-Discogs-Ratelimit-Used"
	HeaderRemaining = "X-Discogs-Ratelimit-Remaining"
)

// DefaultThrottleDelay is the pause applied to each request in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// Prometheus metrics for rate limit tracking.
var (
	requestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artify_ratelimit_remaining",
		Help: "Requests remaining in the current catalog API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artify_ratelimit_blocks_total",
		Help: "Total number of requests held until the rate limit window reset",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artify_ratelimit_throttles_total",
		Help: "Total number of requests throttled in the rate limit warning band",
	})
)

// Tracker monitors the catalog API quota and gates requests.
// With a nil Redis client the state lives in process memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	// ThrottleDelay is the pause applied in the warning band.
	ThrottleDelay time.Duration

	mu    sync.Mutex
	local *RateLimitState
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// GetState returns the current rate limit state.
// Returns a default healthy state if nothing was recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return defaultState(), nil
		}
		state := *t.local
		return &state, nil
	}

	values, err := t.redis.MGet(ctx, RedisKeyLimit, RedisKeyRemaining, RedisKeyResetTimestamp, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	// Keys expire together with the window; a missing one means no fresh data.
	for _, v := range values {
		if v == nil {
			t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
			return defaultState(), nil
		}
	}

	limit, err := strconv.Atoi(values[0].(string))
	if err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	remaining, err := strconv.Atoi(values[1].(string))
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	resetTimestamp, err := strconv.ParseInt(values[2].(string), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	var lastUpdate time.Time
	if err := json.Unmarshal([]byte(values[3].(string)), &lastUpdate); err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.UnixMilli(resetTimestamp),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses the quota headers of a response and records them.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		// Not every response carries the headers (e.g. served by a proxy)
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := DefaultLimit
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	} else if usedStr := headers.Get(HeaderUsed); usedStr != "" {
		used, err := strconv.Atoi(usedStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderUsed, err)
		}
		limit = used + remain
	}

	now := time.Now()
	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    now.Add(Window),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	requestsRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Int("limit", limit).
			Time("reset_at", state.ResetAt).
			Msg("Catalog rate limit CRITICAL - requests will wait for the window")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Catalog rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Int("limit", limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("Catalog rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state *RateLimitState) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Store atomically; keys expire once the window has moved on
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyLimit, state.Limit, Window)
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, Window)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.UnixMilli(), Window)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the request should be held until the window resets.
// Returns true but may sleep for throttling if in warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Catalog rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()
		if err := sleep(ctx, t.ThrottleDelay); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		allowed, err := t.ShouldAllowRequest(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		state, err := t.GetState(ctx)
		if err != nil {
			return fmt.Errorf("get rate limit state: %w", err)
		}
		wait := state.TimeUntilReset()
		if wait <= 0 {
			wait = t.ThrottleDelay
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		// The window has moved on; forget the exhausted quota.
		if err := t.reset(ctx, state); err != nil {
			return err
		}
	}
}

// reset drops state that was not replaced by a newer response while waiting.
func (t *Tracker) reset(ctx context.Context, waited *RateLimitState) error {
	current, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}
	if !current.LastUpdate.Equal(waited.LastUpdate) {
		return nil
	}
	if t.redis == nil {
		t.mu.Lock()
		t.local = nil
		t.mu.Unlock()
		return nil
	}
	if err := t.redis.Del(ctx, RedisKeyLimit, RedisKeyRemaining, RedisKeyResetTimestamp, RedisKeyLastUpdate).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reset rate limit state: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
