package providers

import (
	"context"
	"time"
)

// VisionClient sends one image plus an instruction prompt to a multimodal model
// and returns the model's text answer.
//
// Implementations make exactly one attempt per call. Retrying transient
// failures is the caller's job; the error types in errors.go carry enough
// information to decide.
type VisionClient interface {
	// Name returns the client identifier (e.g., "gemini").
	Name() string

	// Generate runs a single inference call.
	Generate(ctx context.Context, req *VisionRequest) (*VisionResult, error)
}

// HealthChecker is implemented by clients that can verify a credential without
// spending an inference call.
type HealthChecker interface {
	HealthCheck(ctx context.Context, apiKey string) error
}

// VisionRequest is a single image-plus-prompt request.
type VisionRequest struct {
	// APIKey is supplied per request so one client can serve several credentials.
	APIKey string `json:"-"`

	Prompt   string `json:"prompt"`
	Image    []byte `json:"-"`
	MIMEType string `json:"mime_type"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// VisionResult is the response from a vision call.
type VisionResult struct {
	Text string `json:"text"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	Provider   string `json:"provider"`
	ModelUsed  string `json:"model_used"`
	RequestID  string `json:"request_id,omitempty"`
	StatusCode int    `json:"status_code"`

	ExecutionTime time.Duration `json:"execution_time"`
}
