package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-1.5-flash"
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"

	// The key travels in a header so it never appears in request URLs or
	// the *url.Error messages built from them.
	geminiKeyHeader = "x-goog-api-key"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	Model       string
	BaseURL     string
	RateLimit   int // requests per minute, 0 disables limiting
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client // Optional (tests)
	Logger      *slog.Logger
}

// GeminiClient calls the native Gemini generateContent endpoint.
type GeminiClient struct {
	model       string
	baseURL     string
	temperature *float64
	maxTokens   int
	client      *http.Client
	limiter     *RateLimiter
	logger      *slog.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = geminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &GeminiClient{
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      httpClient,
		logger:      cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return c
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Model returns the configured default model.
func (c *GeminiClient) Model() string {
	return c.model
}

// RateLimiter returns the client's limiter, or nil when limiting is off.
func (c *GeminiClient) RateLimiter() *RateLimiter {
	return c.limiter
}

// Generate sends the prompt and inline image in one generateContent call.
func (c *GeminiClient) Generate(ctx context.Context, req *VisionRequest) (*VisionResult, error) {
	start := time.Now()
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{
					MIMEType: req.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
	}
	if c.temperature != nil || c.maxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, status, err := c.doRequest(ctx, model, req.APIKey, &body)
	if err != nil {
		if apiErr, ok := IsAPIError(err); ok && c.limiter != nil && apiErr.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimit(apiErr.RetryAfter)
		}
		c.logger.Debug("gemini request failed", "request_id", requestID, "model", model, "error", err)
		return nil, err
	}

	result := &VisionResult{
		Text:          resp.text(),
		Provider:      GeminiName,
		ModelUsed:     model,
		RequestID:     requestID,
		StatusCode:    status,
		ExecutionTime: time.Since(start),
	}
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = u.PromptTokenCount
		result.CompletionTokens = u.CandidatesTokenCount
		result.TotalTokens = u.TotalTokenCount
	}
	return result, nil
}

// HealthCheck verifies the key by fetching the configured model's descriptor.
func (c *GeminiClient) HealthCheck(ctx context.Context, apiKey string) error {
	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(geminiKeyHeader, apiKey)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &TransportError{Provider: GeminiName, Op: "health check", Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Provider: GeminiName, Op: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geminiAPIError(resp, respBody)
	}
	return nil
}

// doRequest performs one POST to generateContent. It never retries.
func (c *GeminiClient) doRequest(ctx context.Context, model, apiKey string, body *geminiRequest) (*geminiResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(geminiKeyHeader, apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &TransportError{Provider: GeminiName, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Provider: GeminiName, Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, geminiAPIError(resp, respBody)
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, resp.StatusCode, &TransportError{Provider: GeminiName, Op: "decode response", Err: err}
	}
	return &gr, resp.StatusCode, nil
}

func geminiAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   GeminiName,
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var eb geminiErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		apiErr.Message = eb.Error.Message
		apiErr.Status = eb.Error.Status
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// parseRetryAfter reads a Retry-After header in seconds form.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

var (
	_ VisionClient  = (*GeminiClient)(nil)
	_ HealthChecker = (*GeminiClient)(nil)
)
