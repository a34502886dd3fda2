package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// WorldSyncAdapter fetches the membership snapshot of a world from a chat
// platform. Implementations own paging and rate limiting.
type WorldSyncAdapter interface {
	Source() string
	FetchWorld(ctx context.Context, worldID string) (*domain.WorldPayload, error)
}

// SyncWorld pulls a snapshot through adapter and applies it.
func (s *Service) SyncWorld(ctx context.Context, adapter WorldSyncAdapter, worldID string) error {
	world, err := adapter.FetchWorld(ctx, worldID)
	if err != nil {
		return fmt.Errorf("failed to fetch world %s from %s: %w", worldID, adapter.Source(), err)
	}
	if world.Source == "" {
		world.Source = adapter.Source()
	}
	return s.HandleWorldJoined(ctx, *world)
}

// HandleWorldJoined records the rooms, entities and memberships of a world.
// Each record is applied independently; failures are joined.
func (s *Service) HandleWorldJoined(ctx context.Context, world domain.WorldPayload) error {
	var errs []error
	for i := range world.Rooms {
		room := world.Rooms[i]
		if room.WorldID == "" {
			room.WorldID = world.WorldID
		}
		if room.Source == "" {
			room.Source = world.Source
		}
		if err := s.store.EnsureRoom(ctx, &room); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", room.RoomID, err))
			continue
		}
		if err := s.ensureAgent(ctx, room.RoomID); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", room.RoomID, err))
		}
	}
	for i := range world.Entities {
		entity := world.Entities[i]
		if err := s.store.EnsureEntity(ctx, &entity); err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", entity.EntityID, err))
		}
	}
	for _, p := range world.Participants {
		if err := s.store.AddParticipant(ctx, p.RoomID, p.EntityID); err != nil {
			errs = append(errs, fmt.Errorf("participant %s in %s: %w", p.EntityID, p.RoomID, err))
		}
	}

	s.logger.Info("world synced",
		zap.String("world_id", world.WorldID),
		zap.String("source", world.Source),
		zap.Int("rooms", len(world.Rooms)),
		zap.Int("entities", len(world.Entities)),
		zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// HandleEntityJoined adds an entity to a room, creating the room if it was
// never observed.
func (s *Service) HandleEntityJoined(ctx context.Context, m domain.MembershipPayload) error {
	if m.RoomID == "" || m.Entity.EntityID == "" {
		return fmt.Errorf("%w: room_id and entity are required", ErrInvalidRequest)
	}
	if err := s.store.EnsureRoom(ctx, &domain.Room{RoomID: m.RoomID, WorldID: m.WorldID, Source: m.Source}); err != nil {
		return fmt.Errorf("failed to ensure room: %w", err)
	}
	entity := m.Entity
	if err := s.store.EnsureEntity(ctx, &entity); err != nil {
		return fmt.Errorf("failed to ensure entity: %w", err)
	}
	if err := s.store.AddParticipant(ctx, m.RoomID, entity.EntityID); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// HandleEntityLeft removes an entity from a room. The entity itself is kept.
func (s *Service) HandleEntityLeft(ctx context.Context, m domain.MembershipPayload) error {
	if m.RoomID == "" || m.Entity.EntityID == "" {
		return fmt.Errorf("%w: room_id and entity are required", ErrInvalidRequest)
	}
	if err := s.store.RemoveParticipant(ctx, m.RoomID, m.Entity.EntityID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}
