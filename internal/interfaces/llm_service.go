package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMRequest is a single completion request routed by model name
type LLMRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	JSONOutput  bool // Ask the provider for a JSON-only response where supported
}

// LLMService routes completion requests to the provider that serves the model
type LLMService interface {
	// Generate returns the text of the completion
	Generate(ctx context.Context, req LLMRequest) (string, error)

	// Available reports whether a credential exists for the model's provider.
	// Callers use it to choose degraded paths without attempting a call.
	Available(model string) bool
}
