package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
)

// TieredInvoker maps model tiers onto model names of one LLMClient.
type TieredInvoker struct {
	client  LLMClient
	models  map[domain.ModelTier]string
	metrics *metrics.Metrics
}

// NewTieredInvoker creates an invoker. Unknown tiers fall back to the large model.
func NewTieredInvoker(client LLMClient, smallModel, largeModel string, m *metrics.Metrics) *TieredInvoker {
	return &TieredInvoker{
		client: client,
		models: map[domain.ModelTier]string{
			domain.ModelTierSmall: smallModel,
			domain.ModelTierLarge: largeModel,
		},
		metrics: m,
	}
}

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("model returned no choices")

// Generate sends the prompt as a single user message and returns the text of
// the first choice.
func (t *TieredInvoker) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model, ok := t.models[req.Tier]
	if !ok {
		model = t.models[domain.ModelTierLarge]
	}

	chatReq := &ChatCompletionRequest{
		Model:    model,
		Messages: []ChatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		chatReq.MaxTokens = &maxTokens
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, chatReq)
	t.metrics.ObserveModelCall(string(req.Tier), err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to generate with %s: %w", model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
