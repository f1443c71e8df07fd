package providers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockStep scripts one response of a MockClient. A zero StatusCode with an
// empty Err means success with Text.
type MockStep struct {
	Text       string
	StatusCode int
	Err        error
}

// MockClient is a VisionClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)

	// Script is consumed one step per call before falling back to ResponseText.
	Script []MockStep

	// FailFor fails requests whose image bytes equal a key.
	FailFor map[string]error

	mu           sync.Mutex
	requests     []*VisionRequest
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "TITLE- Mock Title\nDESCRIPTION- Mock description.\nCATEGORY- Mock\nKEYWORDS- mock, test",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Generate returns the next scripted response.
func (c *MockClient) Generate(ctx context.Context, req *VisionRequest) (*VisionResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	var step *MockStep
	if len(c.Script) > 0 {
		s := c.Script[0]
		c.Script = c.Script[1:]
		step = &s
	}
	failErr := c.FailFor[string(req.Image)]
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}
	if failErr != nil {
		return nil, failErr
	}

	text := c.ResponseText
	if step != nil {
		if step.Err != nil {
			return nil, step.Err
		}
		if step.StatusCode >= 300 {
			return nil, &APIError{
				Provider:   MockClientName,
				StatusCode: step.StatusCode,
				Message:    http.StatusText(step.StatusCode),
			}
		}
		text = step.Text
	}

	return &VisionResult{
		Text:          text,
		Provider:      MockClientName,
		ModelUsed:     req.Model,
		RequestID:     fmt.Sprintf("mock-%d", count),
		StatusCode:    http.StatusOK,
		ExecutionTime: time.Since(start),
	}, nil
}

// HealthCheck accepts any non-empty key unless ShouldFail is set.
func (c *MockClient) HealthCheck(ctx context.Context, apiKey string) error {
	if c.ShouldFail || apiKey == "" {
		return &APIError{Provider: MockClientName, StatusCode: http.StatusUnauthorized, Message: "invalid api key"}
	}
	return nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns the requests received so far.
func (c *MockClient) Requests() []*VisionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*VisionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var (
	_ VisionClient  = (*MockClient)(nil)
	_ HealthChecker = (*MockClient)(nil)
)
