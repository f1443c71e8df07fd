package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestsPerMinute is the free-tier Gemini Flash quota.
const DefaultRequestsPerMinute = 15

// RateLimiter is a token bucket refilled continuously over a one-minute window.
type RateLimiter struct {
	mu sync.Mutex

	perMinute int
	tokens    float64
	updated   time.Time

	consumed      int64
	waited        time.Duration
	lastRateLimit time.Time

	now func() time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	LastRateLimit   time.Time     `json:"last_rate_limit,omitempty"`
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		perMinute: requestsPerMinute,
		tokens:    float64(requestsPerMinute),
		updated:   time.Now(),
		now:       time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.consumed++
			r.mu.Unlock()
			return nil
		}
		wait := r.untilNextToken()
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token if one is available without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		r.consumed++
		return true
	}
	return false
}

// RecordRateLimit notes a 429. When the server sent Retry-After the bucket is
// drained so the next Wait backs off.
func (r *RateLimiter) RecordRateLimit(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRateLimit = r.now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()

	var until time.Duration
	if r.tokens < 1 {
		until = r.untilNextToken()
	}
	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.perMinute,
		TimeUntilToken:  until,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		LastRateLimit:   r.lastRateLimit,
	}
}

// refill must be called with the lock held.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.updated)
	r.updated = now

	r.tokens += elapsed.Minutes() * float64(r.perMinute)
	if limit := float64(r.perMinute); r.tokens > limit {
		r.tokens = limit
	}
}

// untilNextToken must be called with the lock held.
func (r *RateLimiter) untilNextToken() time.Duration {
	missing := 1 - r.tokens
	return time.Duration(missing / float64(r.perMinute) * float64(time.Minute))
}
