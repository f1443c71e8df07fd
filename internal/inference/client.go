// Package inference turns one image into a metadata.Result by calling a
// vision model, retrying transient overloads with a fixed backoff schedule.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/llmcall"
	"github.com/jackzampolin/stockmeta/internal/metadata"
	"github.com/jackzampolin/stockmeta/internal/providers"
)

var (
	// ErrAuth is returned when no usable credential was supplied. No call is made.
	ErrAuth = errors.New("api key is required")

	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("no response from API")
)

// EventKind identifies a progress notification from GenerateOne.
type EventKind string

const (
	EventAttempt EventKind = "attempt"
	EventBackoff EventKind = "backoff"
)

// Event is emitted before every attempt and before every backoff sleep.
type Event struct {
	Kind       EventKind
	ImageID    string
	ImageName  string
	Attempt    int
	MaxRetries int
	Delay      time.Duration // backoff only
	Err        error         // backoff only
}

// Config configures a Client.
type Config struct {
	Vision   providers.VisionClient
	Parser   *metadata.Parser
	Policy   *RetryPolicy
	Model    string // empty uses the vision client's default
	Prompt   string // empty uses metadata.Prompt()
	Recorder *llmcall.Recorder
	Logger   *slog.Logger
}

// Client generates metadata for single images.
type Client struct {
	vision   providers.VisionClient
	parser   *metadata.Parser
	policy   *RetryPolicy
	model    string
	prompt   string
	recorder *llmcall.Recorder
	logger   *slog.Logger
}

// NewClient creates a client. Vision is required.
func NewClient(cfg Config) *Client {
	if cfg.Parser == nil {
		cfg.Parser = metadata.NewParser(nil)
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = metadata.Prompt()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		vision:   cfg.Vision,
		parser:   cfg.Parser,
		policy:   cfg.Policy,
		model:    cfg.Model,
		prompt:   cfg.Prompt,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// CallOption adjusts a single GenerateOne call.
type CallOption func(*callOptions)

type callOptions struct {
	batchID string
	onEvent func(Event)
}

// WithBatchID tags recorded calls with a batch identifier.
func WithBatchID(id string) CallOption {
	return func(o *callOptions) { o.batchID = id }
}

// WithEvents routes attempt and backoff notifications to fn.
func WithEvents(fn func(Event)) CallOption {
	return func(o *callOptions) { o.onEvent = fn }
}

// GenerateOne produces metadata for img.
//
// Transient overloads (503) are retried per the client's RetryPolicy; when
// retries run out the error is a 503 *providers.APIError wrapping
// ErrRetriesExhausted. Other API and transport failures are returned as-is.
func (c *Client) GenerateOne(ctx context.Context, img *images.Image, credential string, opts ...CallOption) (*metadata.Result, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	emit := func(e Event) {
		if o.onEvent != nil {
			o.onEvent(e)
		}
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrAuth
	}

	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}

	maxRetries := c.policy.MaxRetries()
	var text string

	err = c.policy.Run(ctx, func(attempt int) error {
		emit(Event{Kind: EventAttempt, ImageID: img.ID, ImageName: img.Name, Attempt: attempt, MaxRetries: maxRetries})

		start := time.Now()
		res, err := c.vision.Generate(ctx, &providers.VisionRequest{
			APIKey:    credential,
			Prompt:    c.prompt,
			Image:     data,
			MIMEType:  img.MIMEType,
			Model:     c.model,
			RequestID: uuid.New().String(),
		})
		c.recorder.Record(res, err, llmcall.RecordOptions{
			ImageID:   img.ID,
			ImageName: img.Name,
			BatchID:   o.batchID,
			Attempt:   attempt,
			PromptKey: metadata.PromptKey,
			Provider:  c.vision.Name(),
			Model:     c.model,
			Latency:   time.Since(start),
		})
		if err != nil {
			return err
		}
		text = res.Text
		return nil
	}, func(b Backoff) {
		c.logger.Warn("API overloaded, retrying",
			"image", img.Name,
			"delay", b.Delay,
			"retry", b.Retry,
			"max_retries", b.MaxRetries)
		emit(Event{
			Kind:       EventBackoff,
			ImageID:    img.ID,
			ImageName:  img.Name,
			Attempt:    b.Retry,
			MaxRetries: b.MaxRetries,
			Delay:      b.Delay,
			Err:        b.Err,
		})
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return c.parser.Parse(text), nil
}

// Describe returns a short human-readable reason for a GenerateOne error.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "missing API key"
	case errors.Is(err, ErrRetriesExhausted):
		return "API overloaded, gave up after retries"
	case errors.Is(err, ErrEmptyResponse):
		return "empty response from API"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API error %d: %s", apiErr.StatusCode, apiErr.Message)
	}
	var te *providers.TransportError
	if errors.As(err, &te) {
		return fmt.Sprintf("network error: %v", te.Err)
	}
	return err.Error()
}
