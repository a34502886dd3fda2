// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// MemoryStore persists memories in logical tables.
type MemoryStore interface {
	CreateMemory(ctx context.Context, table domain.MemoryTable, memory *domain.Memory) error
	// GetMemories returns memories most-recent-first.
	GetMemories(ctx context.Context, query domain.MemoryQuery) ([]domain.Memory, error)
	GetMemory(ctx context.Context, table domain.MemoryTable, memoryID string) (*domain.Memory, error)
}

// RelationshipStore persists the directed relationship graph.
type RelationshipStore interface {
	// GetRelationships returns edges where entityID is source or target.
	GetRelationships(ctx context.Context, entityID string) ([]domain.Relationship, error)
	CreateRelationship(ctx context.Context, rel *domain.Relationship) error
	// MergeRelationship atomically creates the edge or folds one more
	// observation into the stored edge of the same (source, target) pair.
	MergeRelationship(ctx context.Context, rel *domain.Relationship) (created bool, err error)
}

// Cache is a small string key-value store.
type Cache interface {
	GetCache(ctx context.Context, key string) (string, bool, error)
	SetCache(ctx context.Context, key, value string) error
}

// ParticipantStore answers and changes the agent's participation state.
type ParticipantStore interface {
	GetParticipantState(ctx context.Context, roomID, entityID string) (domain.ParticipantState, error)
	SetParticipantState(ctx context.Context, roomID, entityID string, state domain.ParticipantState) error
}

// WorldStore tracks rooms, entities and membership.
type WorldStore interface {
	EnsureRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	// EnsureEntity creates the entity or appends names it has not been seen with.
	EnsureEntity(ctx context.Context, entity *domain.Entity) error
	GetEntity(ctx context.Context, entityID string) (*domain.Entity, error)
	AddParticipant(ctx context.Context, roomID, entityID string) error
	RemoveParticipant(ctx context.Context, roomID, entityID string) error
	GetEntitiesForRoom(ctx context.Context, roomID string) ([]domain.Entity, error)
}

// Store defines the interface for data persistence.
type Store interface {
	MemoryStore
	RelationshipStore
	Cache
	ParticipantStore
	WorldStore
	Close() error
}
