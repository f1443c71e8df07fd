package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackzampolin/stockmeta/internal/providers"
)

// ErrRetriesExhausted is wrapped into the final error when every backoff
// delay has been used and the model is still overloaded.
var ErrRetriesExhausted = errors.New("model still overloaded after retries")

// DefaultDelays are the waits before retries 1, 2 and 3.
var DefaultDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Backoff describes one scheduled retry.
type Backoff struct {
	Retry      int // 1-based retry number
	MaxRetries int
	Delay      time.Duration
	Err        error
}

// RetryPolicy retries an operation while it fails with a transient overload.
//
// States: attempting -> (success) done, (retryable, delays left) backing off
// -> attempting, (retryable, no delays left) exhausted, (other error) failed.
type RetryPolicy struct {
	Delays []time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Defaults to providers.IsTransientOverload.
	Retryable func(error) bool

	// Sleep waits d or returns ctx.Err(). Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the 1s/2s/4s overload policy.
func DefaultRetryPolicy() *RetryPolicy {
	delays := make([]time.Duration, len(DefaultDelays))
	copy(delays, DefaultDelays)
	return &RetryPolicy{Delays: delays}
}

// MaxRetries returns the number of retries after the first attempt.
func (p *RetryPolicy) MaxRetries() int {
	return len(p.Delays)
}

// Run calls op until it succeeds, fails terminally, or the delays run out.
// attempt passed to op is 1-based. onBackoff, if set, is called before each
// sleep. Exhaustion returns a 503 *providers.APIError wrapping both
// ErrRetriesExhausted and the last error.
func (p *RetryPolicy) Run(ctx context.Context, op func(attempt int) error, onBackoff func(Backoff)) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = providers.IsTransientOverload
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		if attempt > len(p.Delays) {
			return &providers.APIError{
				StatusCode: http.StatusServiceUnavailable,
				Status:     "UNAVAILABLE",
				Message:    fmt.Sprintf("model overloaded after %d retries", len(p.Delays)),
				Err:        fmt.Errorf("%w: %w", ErrRetriesExhausted, err),
			}
		}

		delay := p.Delays[attempt-1]
		if onBackoff != nil {
			onBackoff(Backoff{Retry: attempt, MaxRetries: len(p.Delays), Delay: delay, Err: err})
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
