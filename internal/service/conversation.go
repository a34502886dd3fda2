package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/prompt"
)

// recentFacts bounds the facts shown in the response prompt.
const recentFacts = 10

type conversation struct {
	messages []domain.Memory // most recent first
	roster   []domain.Entity
	facts    []domain.Memory
	names    prompt.Names
}

func (c *conversation) transcript() string {
	return prompt.Messages(c.messages, c.names)
}

func (c *conversation) factClaims() []string {
	claims := make([]string, 0, len(c.facts))
	for _, f := range c.facts {
		claims = append(claims, f.Content.Text)
	}
	return claims
}

// loadConversation reads the recent window, the roster and optionally the
// latest facts of a room concurrently.
func (s *Service) loadConversation(ctx context.Context, roomID string, withFacts bool) (*conversation, error) {
	conv := &conversation{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		msgs, err := s.store.GetMemories(gctx, domain.MemoryQuery{
			Table:  domain.MemoryTableMessages,
			RoomID: roomID,
			Count:  s.conversationLength,
		})
		if err != nil {
			return fmt.Errorf("failed to get messages: %w", err)
		}
		conv.messages = msgs
		return nil
	})
	g.Go(func() error {
		roster, err := s.store.GetEntitiesForRoom(gctx, roomID)
		if err != nil {
			return fmt.Errorf("failed to get room entities: %w", err)
		}
		conv.roster = roster
		return nil
	})
	if withFacts {
		g.Go(func() error {
			facts, err := s.store.GetMemories(gctx, domain.MemoryQuery{
				Table:  domain.MemoryTableFacts,
				RoomID: roomID,
				Count:  recentFacts,
				Unique: true,
			})
			if err != nil {
				return fmt.Errorf("failed to get facts: %w", err)
			}
			conv.facts = facts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	conv.names = prompt.NewNames(conv.roster, s.agentID, s.agentName)
	return conv, nil
}
