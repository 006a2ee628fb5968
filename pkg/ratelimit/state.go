// Package ratelimit tracks the catalog API's request quota and gates outbound
// requests. It reads the X-Discogs-Ratelimit, X-Discogs-Ratelimit-Used and
// X-Discogs-Ratelimit-Remaining headers returned with every response.
//
// The API counts requests over a moving one-minute window and answers 429
// once the quota is spent. The tracker stops issuing requests shortly before
// that point and resumes once the window has moved on.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyLimit          = "artify:rate_limit:limit"
	RedisKeyRemaining      = "artify:rate_limit:remaining"
	RedisKeyResetTimestamp = "artify:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "artify:rate_limit:last_update"
)

// Window is the length of the API's moving rate limit window.
const Window = 60 * time.Second

// DefaultLimit is assumed until the first response reports the real quota.
const DefaultLimit = 60

// Thresholds for rate limit decisions, in requests remaining in the window.
const (
	// RemainingThresholdCritical blocks requests until the window resets.
	RemainingThresholdCritical = 3

	// RemainingThresholdWarning throttles each request.
	RemainingThresholdWarning = 10

	// RemainingThresholdHealthy indicates normal operation.
	RemainingThresholdHealthy = 20
)

// RateLimitState is the last quota reported by the API.
// With a Redis backend it is shared by every client instance.
type RateLimitState struct {
	// Limit is the window quota (X-Discogs-Ratelimit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left (X-Discogs-Ratelimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the window observed at LastUpdate has fully moved on.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were read.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is the optimistic state used before any response was seen.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      DefaultLimit,
		Remaining:  DefaultLimit,
		ResetAt:    now.Add(Window),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should wait for the window to reset.
// A state whose window already passed never blocks.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}
