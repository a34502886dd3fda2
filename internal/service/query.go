package service

import (
	"context"
	"fmt"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// GetMessages returns up to limit messages of a room, most recent first.
func (s *Service) GetMessages(ctx context.Context, roomID string, limit int) ([]domain.Memory, error) {
	messages, err := s.store.GetMemories(ctx, domain.MemoryQuery{
		Table:  domain.MemoryTableMessages,
		RoomID: roomID,
		Count:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// GetFacts returns up to limit facts learned in a room, most recent first.
func (s *Service) GetFacts(ctx context.Context, roomID string, limit int) ([]domain.Fact, error) {
	memories, err := s.store.GetMemories(ctx, domain.MemoryQuery{
		Table:  domain.MemoryTableFacts,
		RoomID: roomID,
		Count:  limit,
		Unique: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get facts: %w", err)
	}
	facts := make([]domain.Fact, 0, len(memories))
	for _, m := range memories {
		facts = append(facts, domain.FactFromMemory(m))
	}
	return facts, nil
}

// GetRelationships returns the edges touching an entity.
func (s *Service) GetRelationships(ctx context.Context, entityID string) ([]domain.Relationship, error) {
	rels, err := s.store.GetRelationships(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	return rels, nil
}

// GetParticipantState returns the agent's state in a room.
func (s *Service) GetParticipantState(ctx context.Context, roomID string) (domain.ParticipantState, error) {
	state, err := s.store.GetParticipantState(ctx, roomID, s.agentID)
	if err != nil {
		return domain.ParticipantStateNone, fmt.Errorf("failed to get participant state: %w", err)
	}
	return state, nil
}

// SetParticipantState changes the agent's state in a room.
func (s *Service) SetParticipantState(ctx context.Context, roomID string, state domain.ParticipantState) error {
	if roomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrInvalidRequest)
	}
	if !state.Valid() {
		return fmt.Errorf("%w: unknown participant state %q", ErrInvalidRequest, state)
	}
	if err := s.store.SetParticipantState(ctx, roomID, s.agentID, state); err != nil {
		return fmt.Errorf("failed to set participant state: %w", err)
	}
	return nil
}
