package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// EnsureRoom creates the room if missing. Existing rooms keep their type.
func (s *SQLiteStore) EnsureRoom(ctx context.Context, room *domain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	if room.Type == "" {
		room.Type = domain.RoomTypeGroup
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (room_id, world_id, name, type, source, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET
			world_id = COALESCE(NULLIF(excluded.world_id, ''), rooms.world_id),
			name = COALESCE(NULLIF(excluded.name, ''), rooms.name)`,
		room.RoomID, room.WorldID, room.Name, string(room.Type), room.Source, room.CreatedAt.UnixMilli())
	return err
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	var worldID, name, source sql.NullString
	var roomType string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT room_id, world_id, name, type, source, created_at FROM rooms WHERE room_id = ?`, roomID,
	).Scan(&room.RoomID, &worldID, &name, &roomType, &source, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	room.WorldID = worldID.String
	room.Name = name.String
	room.Source = source.String
	room.Type = domain.RoomType(roomType)
	room.CreatedAt = time.UnixMilli(createdAt)
	return &room, nil
}

// EnsureEntity creates the entity or appends names it has not been seen with.
func (s *SQLiteStore) EnsureEntity(ctx context.Context, entity *domain.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rawNames string
	err = tx.QueryRowContext(ctx, `SELECT names FROM entities WHERE entity_id = ?`, entity.EntityID).Scan(&rawNames)
	switch {
	case err == sql.ErrNoRows:
		if entity.CreatedAt.IsZero() {
			entity.CreatedAt = time.Now()
		}
		names, err := json.Marshal(nonNilStrings(entity.Names))
		if err != nil {
			return fmt.Errorf("failed to marshal names: %w", err)
		}
		metadata, err := marshalMetadata(entity.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (entity_id, names, metadata, created_at) VALUES (?, ?, ?, ?)`,
			entity.EntityID, string(names), metadata, entity.CreatedAt.UnixMilli()); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		var known []string
		if err := json.Unmarshal([]byte(rawNames), &known); err != nil {
			return fmt.Errorf("failed to decode names of %s: %w", entity.EntityID, err)
		}
		merged := appendMissing(known, entity.Names...)
		if len(merged) == len(known) {
			return tx.Commit()
		}
		names, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal names: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET names = ? WHERE entity_id = ?`, string(names), entity.EntityID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetEntity retrieves an entity by id.
func (s *SQLiteStore) GetEntity(ctx context.Context, entityID string) (*domain.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT entity_id, names, metadata, created_at FROM entities WHERE entity_id = ?`, entityID)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// AddParticipant adds the entity to the room, keeping any existing state.
func (s *SQLiteStore) AddParticipant(ctx context.Context, roomID, entityID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (room_id, entity_id) VALUES (?, ?) ON CONFLICT(room_id, entity_id) DO NOTHING`,
		roomID, entityID)
	return err
}

// RemoveParticipant removes the entity from the room.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, roomID, entityID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM participants WHERE room_id = ? AND entity_id = ?`, roomID, entityID)
	return err
}

// GetEntitiesForRoom returns the room roster in join order.
func (s *SQLiteStore) GetEntitiesForRoom(ctx context.Context, roomID string) ([]domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.entity_id, e.names, e.metadata, e.created_at
		 FROM participants p JOIN entities e ON e.entity_id = p.entity_id
		 WHERE p.room_id = ?
		 ORDER BY p.rowid`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}
	return entities, rows.Err()
}

// GetParticipantState returns the entity's state in the room. Non-members
// have no state.
func (s *SQLiteStore) GetParticipantState(ctx context.Context, roomID, entityID string) (domain.ParticipantState, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM participants WHERE room_id = ? AND entity_id = ?`, roomID, entityID,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return domain.ParticipantStateNone, nil
	}
	if err != nil {
		return domain.ParticipantStateNone, err
	}
	return domain.ParticipantState(state), nil
}

// SetParticipantState sets the entity's state, joining it to the room if needed.
func (s *SQLiteStore) SetParticipantState(ctx context.Context, roomID, entityID string, state domain.ParticipantState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (room_id, entity_id, state) VALUES (?, ?, ?)
		 ON CONFLICT(room_id, entity_id) DO UPDATE SET state = excluded.state`,
		roomID, entityID, string(state))
	return err
}

func scanEntity(row rowScanner) (*domain.Entity, error) {
	var entity domain.Entity
	var names string
	var metadata sql.NullString
	var createdAt int64
	if err := row.Scan(&entity.EntityID, &names, &metadata, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(names), &entity.Names); err != nil {
		return nil, fmt.Errorf("failed to decode names of %s: %w", entity.EntityID, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &entity.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of %s: %w", entity.EntityID, err)
		}
	}
	entity.CreatedAt = time.UnixMilli(createdAt)
	return &entity, nil
}

func marshalMetadata(metadata map[string]any) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func appendMissing(list []string, values ...string) []string {
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		list = append(list, v)
	}
	return list
}

func nonNilStrings(values []string) []string {
	return appendMissing([]string{}, values...)
}
