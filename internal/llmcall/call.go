// Package llmcall records every inference attempt for traceability.
// Each attempt (successful or not) becomes one Call appended to a JSON Lines
// log in the home directory.
package llmcall

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/stockmeta/internal/providers"
)

// Call represents one recorded inference attempt.
type Call struct {
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	ImageID   string `json:"image_id,omitempty"`
	ImageName string `json:"image_name,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
	Attempt   int    `json:"attempt"`

	PromptKey string `json:"prompt_key"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	Response   string `json:"response,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an attempt.
type RecordOptions struct {
	ImageID   string
	ImageName string
	BatchID   string
	Attempt   int
	PromptKey string

	// Provider and Model fill in for failed attempts that produced no result.
	Provider string
	Model    string
	Latency  time.Duration
}

// FromResult builds a Call from one attempt's result and error. Either may
// be nil.
func FromResult(result *providers.VisionResult, err error, opts RecordOptions) *Call {
	call := &Call{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		LatencyMs: int(opts.Latency.Milliseconds()),
		ImageID:   opts.ImageID,
		ImageName: opts.ImageName,
		BatchID:   opts.BatchID,
		Attempt:   opts.Attempt,
		PromptKey: opts.PromptKey,
		Provider:  opts.Provider,
		Model:     opts.Model,
		Success:   err == nil,
	}

	if result != nil {
		call.Provider = result.Provider
		call.Model = result.ModelUsed
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.Response = result.Text
		call.StatusCode = result.StatusCode
		if result.ExecutionTime > 0 {
			call.LatencyMs = int(result.ExecutionTime.Milliseconds())
		}
	}

	if err != nil {
		call.Error = err.Error()
		var apiErr *providers.APIError
		if errors.As(err, &apiErr) {
			call.StatusCode = apiErr.StatusCode
		}
	}

	return call
}
