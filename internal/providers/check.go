package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrMissingAPIKey is returned when a credential is empty or whitespace.
var ErrMissingAPIKey = errors.New("api key is required")

// CheckOptions tunes CheckCredential polling.
type CheckOptions struct {
	Attempts uint
	Delay    time.Duration
	OnRetry  func(attempt uint, err error)
}

// CheckCredential verifies apiKey against client. Transient failures
// (overload, rate limit, transport) are polled with a fixed delay; auth and
// other client errors fail immediately.
func CheckCredential(ctx context.Context, client VisionClient, apiKey string, opts CheckOptions) error {
	if strings.TrimSpace(apiKey) == "" {
		return ErrMissingAPIKey
	}
	hc, ok := client.(HealthChecker)
	if !ok {
		return fmt.Errorf("%s client does not support credential checks", client.Name())
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay == 0 {
		opts.Delay = 2 * time.Second
	}

	retryOpts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableCheck),
	}
	if opts.OnRetry != nil {
		retryOpts = append(retryOpts, retry.OnRetry(opts.OnRetry))
	}

	return retry.Do(func() error {
		return hc.HealthCheck(ctx, apiKey)
	}, retryOpts...)
}

func isRetryableCheck(err error) bool {
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var te *TransportError
	return errors.As(err, &te)
}
