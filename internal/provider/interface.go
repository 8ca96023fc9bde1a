// Package provider defines the LLM completion capability the pipeline is
// built on. The pipeline treats it as opaque: a prompt goes in, raw text
// comes out. Everything defensive happens above this layer.
package provider

import (
	"context"
	"time"
)

// AccessMode controls what tool access a completion session is granted
type AccessMode string

const (
	// AccessReadOnly sessions may read context but not touch the workspace
	AccessReadOnly AccessMode = "read-only"

	// AccessWriteEnabled sessions may propose file content
	AccessWriteEnabled AccessMode = "write-enabled"
)

// CompletionRequest contains all parameters for a completion round-trip
type CompletionRequest struct {
	// Prompt is the main input text
	Prompt string

	// SystemPrompt sets system-level instructions
	SystemPrompt string

	// MaxTokens limits the response length; 0 uses the provider default
	MaxTokens int

	// Temperature controls randomness
	Temperature float64

	// AccessMode requests a permission level for the session
	AccessMode AccessMode

	// Timeout bounds this call; 0 uses the completer's default. Generation
	// can legitimately take minutes, so callers should pass the configured
	// generous timeout rather than inventing a short one.
	Timeout time.Duration

	// Metadata for tracking and debugging
	Metadata map[string]string
}

// CompletionResponse contains the model's raw response
type CompletionResponse struct {
	// Content is the generated text, unparsed
	Content string

	// Model is the model that produced the response
	Model string

	// InputTokens and OutputTokens are usage counts when reported
	InputTokens  int
	OutputTokens int

	// Latency is how long the round-trip took
	Latency time.Duration

	// StopReason explains why generation stopped
	StopReason string
}

// Completer is the completion capability. Implementations must honor the
// request timeout and the context: a hung call must be cancellable without
// corrupting any state, since all pipeline writes are atomic.
type Completer interface {
	// Complete sends a prompt and returns the complete raw response
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name identifies the completer for logs and reports
	Name() string
}
