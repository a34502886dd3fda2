package llm

import (
	"time"

	"go.uber.org/zap"
)

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the configured mode.
// In MOCK mode a MockClient is returned; otherwise a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) LLMClient {
	if mode == ModeMock {
		if logger != nil {
			logger.Info("mock mode detected, using mock LLM client")
		}
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
