// Package llm provides an abstraction for language model API clients.
package llm

import (
	"context"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// LLMClient defines the interface for OpenAI-compatible API operations.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateEmbedding returns one embedding per input text.
	CreateEmbedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}

// GenerateRequest is a single prompt sent to a model tier.
type GenerateRequest struct {
	Tier      domain.ModelTier
	Prompt    string
	MaxTokens int
}

// Invoker turns a prompt into text using the model bound to a tier.
type Invoker interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f InvokerFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
