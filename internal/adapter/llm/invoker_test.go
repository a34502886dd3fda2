package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

func TestTieredInvokerSelectsModelByTier(t *testing.T) {
	var gotModel string
	var gotMaxTokens *int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		gotMaxTokens = req.MaxTokens

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Model:   req.Model,
			Choices: []Choice{{Message: &ChatMessage{Role: "assistant", Content: "RESPOND"}}},
		})
	}))
	defer server.Close()

	invoker := NewTieredInvoker(NewClient(server.URL, "secret", time.Second), "small-model", "large-model", nil)

	out, err := invoker.Generate(context.Background(), GenerateRequest{Tier: domain.ModelTierSmall, Prompt: "hi", MaxTokens: 8})
	require.NoError(t, err)
	assert.Equal(t, "RESPOND", out)
	assert.Equal(t, "small-model", gotModel)
	require.NotNil(t, gotMaxTokens)
	assert.Equal(t, 8, *gotMaxTokens)

	_, err = invoker.Generate(context.Background(), GenerateRequest{Tier: domain.ModelTierLarge, Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "large-model", gotModel)
}

func TestTieredInvokerSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	invoker := NewTieredInvoker(NewClient(server.URL, "", time.Second), "s", "l", nil)
	_, err := invoker.Generate(context.Background(), GenerateRequest{Tier: domain.ModelTierSmall, Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestTieredInvokerNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	invoker := NewTieredInvoker(NewClient(server.URL, "", time.Second), "s", "l", nil)
	_, err := invoker.Generate(context.Background(), GenerateRequest{Tier: domain.ModelTierSmall, Prompt: "hi"})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestMockEmbeddingIsDeterministicAndNormalized(t *testing.T) {
	a := MockEmbedding("Alice likes tea")
	b := MockEmbedding("alice likes tea")
	assert.Equal(t, a, b)

	var sum float64
	for _, v := range a {
		sum += float64(v * v)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}
