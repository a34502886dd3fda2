package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	store "github.com/baYsed-BuidlAI/luna/internal/repository"
)

// AgentIDKey is the cache key holding the generated agent id.
const AgentIDKey = "agent-id"

// ResolveAgentID returns configured when it is set. Otherwise it returns the
// id generated on an earlier start, generating and storing one on the first.
func ResolveAgentID(ctx context.Context, cache store.Cache, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	id, ok, err := cache.GetCache(ctx, AgentIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read agent id: %w", err)
	}
	if ok {
		if _, err := uuid.Parse(id); err != nil {
			return "", fmt.Errorf("stored agent id %q is not a uuid: %w", id, err)
		}
		return id, nil
	}
	id = uuid.New().String()
	if err := cache.SetCache(ctx, AgentIDKey, id); err != nil {
		return "", fmt.Errorf("failed to store agent id: %w", err)
	}
	return id, nil
}
