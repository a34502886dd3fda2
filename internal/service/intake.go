package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// ErrInvalidRequest marks caller input the service refuses.
var ErrInvalidRequest = errors.New("invalid request")

// ReceiveMessage records the sender and room of an inbound message and
// returns the memory to hand to HandleMessage.
func (s *Service) ReceiveMessage(ctx context.Context, roomID string, req domain.CreateMessageRequest) (*domain.Memory, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", ErrInvalidRequest)
	}
	if req.EntityID == "" {
		return nil, fmt.Errorf("%w: entity_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}

	if err := s.ensureConnection(ctx, roomID, req.ChannelType, req.Source, req.EntityID, req.EntityName); err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &domain.Memory{
		ID:       id,
		RoomID:   roomID,
		EntityID: req.EntityID,
		AgentID:  s.agentID,
		Content: domain.Content{
			Text:      req.Text,
			Source:    req.Source,
			InReplyTo: req.InReplyTo,
			Channel:   req.ChannelType,
		},
		CreatedAt: time.Now(),
	}, nil
}

// AcceptMessage receives an inbound message and mints its generation token
// before the message is handed to the dispatch table. Tokens thus follow
// arrival order even when handlers run out of order, and a reply to an earlier
// message is discarded once a later one has been accepted.
func (s *Service) AcceptMessage(ctx context.Context, roomID string, req domain.CreateMessageRequest) (domain.MessagePayload, error) {
	msg, err := s.ReceiveMessage(ctx, roomID, req)
	if err != nil {
		return domain.MessagePayload{}, err
	}
	return domain.MessagePayload{
		RoomID:     roomID,
		Message:    msg,
		Generation: s.mint(roomID, msg.ID),
	}, nil
}

// ReceiveReaction validates an inbound reaction and returns its memory.
func (s *Service) ReceiveReaction(ctx context.Context, roomID string, req domain.CreateReactionRequest) (*domain.Memory, error) {
	if roomID == "" || req.EntityID == "" {
		return nil, fmt.Errorf("%w: room_id and entity_id are required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Reaction) == "" {
		return nil, fmt.Errorf("%w: reaction is required", ErrInvalidRequest)
	}
	if req.InReplyTo == "" {
		return nil, fmt.Errorf("%w: in_reply_to is required", ErrInvalidRequest)
	}

	if err := s.ensureConnection(ctx, roomID, "", req.Source, req.EntityID, ""); err != nil {
		return nil, err
	}
	return &domain.Memory{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		EntityID: req.EntityID,
		AgentID:  s.agentID,
		Content: domain.Content{
			Text:      req.Reaction,
			Source:    req.Source,
			InReplyTo: req.InReplyTo,
		},
		CreatedAt: time.Now(),
	}, nil
}

// HandleReaction stores a reaction. Reactions never trigger a response.
func (s *Service) HandleReaction(ctx context.Context, roomID string, reaction domain.Memory) error {
	reaction.RoomID = roomID
	if err := s.store.CreateMemory(ctx, domain.MemoryTableReactions, &reaction); err != nil {
		return fmt.Errorf("failed to store reaction: %w", err)
	}
	s.logger.Debug("stored reaction",
		zap.String("room_id", roomID),
		zap.String("entity_id", reaction.EntityID),
		zap.String("in_reply_to", reaction.Content.InReplyTo))
	return nil
}

// ensureConnection makes sure the room, the sender and the agent are known
// and that both entities participate in the room.
func (s *Service) ensureConnection(ctx context.Context, roomID string, roomType domain.RoomType, source, entityID, entityName string) error {
	if err := s.store.EnsureRoom(ctx, &domain.Room{RoomID: roomID, Type: roomType, Source: source}); err != nil {
		return fmt.Errorf("failed to ensure room: %w", err)
	}

	entity := &domain.Entity{EntityID: entityID}
	if entityName != "" {
		entity.Names = []string{entityName}
	}
	if err := s.store.EnsureEntity(ctx, entity); err != nil {
		return fmt.Errorf("failed to ensure entity: %w", err)
	}
	if err := s.store.AddParticipant(ctx, roomID, entityID); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return s.ensureAgent(ctx, roomID)
}

func (s *Service) ensureAgent(ctx context.Context, roomID string) error {
	agent := &domain.Entity{EntityID: s.agentID}
	if s.agentName != "" {
		agent.Names = []string{s.agentName}
	}
	if err := s.store.EnsureEntity(ctx, agent); err != nil {
		return fmt.Errorf("failed to ensure agent entity: %w", err)
	}
	if err := s.store.AddParticipant(ctx, roomID, s.agentID); err != nil {
		return fmt.Errorf("failed to add agent to room: %w", err)
	}
	return nil
}
