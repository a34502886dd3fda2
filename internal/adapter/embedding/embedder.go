// Package embedding generates text embeddings for memories.
package embedding

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/baYsed-BuidlAI/luna/internal/adapter/llm"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Embedder generates text embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyEmbedding is returned when the provider answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding provider returned no vector")

// cachedEmbedder calls an OpenAI-compatible embeddings endpoint and keeps an
// LRU cache keyed by text.
type cachedEmbedder struct {
	client llm.LLMClient
	model  string
	cache  *lru.Cache[string, []float32]
}

// NewEmbedder creates an embedder. cacheSize defaults to 10000.
func NewEmbedder(client llm.LLMClient, model string, cacheSize int) (Embedder, error) {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &cachedEmbedder{client: client, model: model, cache: cache}, nil
}

// Embed generates the embedding for a single text.
func (e *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	resp, err := e.client.CreateEmbedding(ctx, &llm.EmbeddingRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	vec := resp.Data[0].Embedding
	e.cache.Add(text, vec)
	return vec, nil
}

// AddEmbedding fills m.Embedding from its text content. Memories without text
// are returned unchanged.
func AddEmbedding(ctx context.Context, e Embedder, m *domain.Memory) (*domain.Memory, error) {
	if e == nil || m.Content.Text == "" || len(m.Embedding) > 0 {
		return m, nil
	}
	vec, err := e.Embed(ctx, m.Content.Text)
	if err != nil {
		return m, err
	}
	m.Embedding = vec
	return m, nil
}
