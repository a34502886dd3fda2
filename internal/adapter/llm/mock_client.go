package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
)

// MockClient is a mock implementation of LLMClient for local runs and tests.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// MockEmbeddingDimensions is the size of mock embedding vectors.
const MockEmbeddingDimensions = 32

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	responseContent := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: responseContent,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(responseContent) / 4,
			TotalTokens:      m.estimateTokens(req) + len(responseContent)/4,
		},
	}, nil
}

// CreateEmbedding returns deterministic pseudo-embeddings derived from the text.
func (m *MockClient) CreateEmbedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	resp := &EmbeddingResponse{Model: req.Model}
	for i, text := range req.Input {
		resp.Data = append(resp.Data, EmbeddingData{Index: i, Embedding: MockEmbedding(text)})
	}
	return resp, nil
}

// MockEmbedding hashes words of text into a normalized vector.
func MockEmbedding(text string) []float32 {
	vec := make([]float32, MockEmbeddingDimensions)
	vec[0] = 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%MockEmbeddingDimensions] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}

	switch {
	case strings.Contains(prompt, "RESPOND, IGNORE or STOP"):
		return "RESPOND"
	case strings.Contains(prompt, `"relationships"`):
		return "```json\n{\"thought\":\"[MOCK] nothing new\",\"facts\":[],\"relationships\":[]}\n```"
	}

	lastLine := prompt
	if idx := strings.LastIndex(strings.TrimSpace(prompt), "\n"); idx >= 0 {
		lastLine = strings.TrimSpace(prompt)[idx+1:]
	}
	content, _ := json.Marshal(map[string]interface{}{
		"thought": "[MOCK] replying",
		"text":    fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastLine, 100)),
		"actions": []string{"REPLY"},
	})
	return string(content)
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
