package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIVisionName         = "openai"
	OpenAIVisionDefaultModel = "gpt-4o-mini"
)

// OpenAIVisionConfig holds configuration for the OpenAI-compatible vision client.
// Point BaseURL at Gemini's OpenAI endpoint
// (https://generativelanguage.googleapis.com/v1beta/openai/) to use Gemini models.
type OpenAIVisionConfig struct {
	Model      string
	BaseURL    string
	RateLimit  int // requests per minute, 0 disables limiting
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIVisionClient implements VisionClient using the official OpenAI SDK.
type OpenAIVisionClient struct {
	model     string
	maxTokens int
	client    openai.Client
	limiter   *RateLimiter
	logger    *slog.Logger
}

// NewOpenAIVisionClient creates a new OpenAI-compatible vision client.
func NewOpenAIVisionClient(cfg OpenAIVisionConfig) *OpenAIVisionClient {
	if cfg.Model == "" {
		cfg.Model = OpenAIVisionDefaultModel
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

	// The SDK's own retries are disabled; overload handling lives in inference.
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &OpenAIVisionClient{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    openai.NewClient(opts...),
		logger:    cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return c
}

// Name returns the provider identifier.
func (c *OpenAIVisionClient) Name() string {
	return OpenAIVisionName
}

// Model returns the configured default model.
func (c *OpenAIVisionClient) Model() string {
	return c.model
}

// RateLimiter returns the client's limiter, or nil when limiting is off.
func (c *OpenAIVisionClient) RateLimiter() *RateLimiter {
	return c.limiter
}

// Generate sends one user message holding the prompt and a data-URL image.
func (c *OpenAIVisionClient) Generate(ctx context.Context, req *VisionRequest) (*VisionResult, error) {
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

	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MIMEType, base64.StdEncoding.EncodeToString(req.Image))
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = mapOpenAIError(err)
		if apiErr, ok := IsAPIError(err); ok && c.limiter != nil && apiErr.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimit(apiErr.RetryAfter)
		}
		c.logger.Debug("openai request failed", "request_id", requestID, "model", model, "error", err)
		return nil, err
	}

	result := &VisionResult{
		Provider:         OpenAIVisionName,
		ModelUsed:        model,
		RequestID:        requestID,
		StatusCode:       http.StatusOK,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
	}
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
	}
	return result, nil
}

// HealthCheck verifies the key by listing models.
func (c *OpenAIVisionClient) HealthCheck(ctx context.Context, apiKey string) error {
	page, err := c.client.Models.List(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("openai models list failed: %w", mapOpenAIError(err))
	}
	if page == nil {
		return fmt.Errorf("openai models list returned nil response")
	}
	return nil
}

// mapOpenAIError converts SDK errors into APIError or TransportError.
func mapOpenAIError(err error) error {
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		apiErr := &APIError{
			Provider:   OpenAIVisionName,
			StatusCode: sdkErr.StatusCode,
			Status:     strings.ToUpper(sdkErr.Code),
			Message:    sdkErr.Message,
		}
		if sdkErr.Response != nil {
			apiErr.RetryAfter = parseRetryAfter(sdkErr.Response.Header.Get("Retry-After"))
		}
		return apiErr
	}
	return &TransportError{Provider: OpenAIVisionName, Op: "request", Err: err}
}

var (
	_ VisionClient  = (*OpenAIVisionClient)(nil)
	_ HealthChecker = (*OpenAIVisionClient)(nil)
)
