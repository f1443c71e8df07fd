package providers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from an inference endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string // upstream status label, e.g. "UNAVAILABLE"
	Message    string
	RetryAfter time.Duration

	// Err is an optional cause, set when an error was escalated into an APIError.
	Err error
}

func (e *APIError) Error() string {
	label := e.Provider
	if label == "" {
		label = "api"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("%s error (status %d %s): %s", label, e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("%s error (status %d): %s", label, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// TransportError is a failure that happened before a status code was available:
// dial errors, resets, unreadable or undecodable bodies.
type TransportError struct {
	Provider string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAPIError returns the *APIError in err's chain, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRateLimit reports whether err is a 429 from the upstream API.
func IsRateLimit(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsTransientOverload reports whether err signals a temporarily overloaded
// model: an HTTP 503, or any error whose message carries the 503 or
// "overloaded" signature that did not come with a status code.
func IsTransientOverload(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusServiceUnavailable
	}
	// *url.Error embeds the request URL; classify on the underlying cause only.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return overloadMessage(urlErr.Err.Error())
	}
	return overloadMessage(err.Error())
}

func overloadMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "503") || strings.Contains(lower, "overloaded")
}
