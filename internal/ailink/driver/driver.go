package driver

import (
	"context"

	"github.com/labelens/labelens/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "anthropic").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsImages    bool
	SupportsStreaming bool
	SupportedModels   []string
}

// Usage contains token usage statistics.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []content.Message
	System      string
	Temperature *float64
	MaxTokens   *int
	Metadata    map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content    []content.ContentBlock
	StopReason string
	Usage      *Usage
}
