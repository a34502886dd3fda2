package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// GetRelationships returns edges where entityID is source or target.
func (s *SQLiteStore) GetRelationships(ctx context.Context, entityID string) ([]domain.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT relationship_id, source_entity_id, target_entity_id, agent_id, tags, metadata, created_at, updated_at
		 FROM relationships WHERE source_entity_id = ? OR target_entity_id = ?
		 ORDER BY created_at, rowid`, entityID, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []domain.Relationship
	for rows.Next() {
		var rel domain.Relationship
		if err := scanRelationship(rows, &rel); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// CreateRelationship stores a new edge. A second edge for the same
// (source, target) pair is rejected by the schema.
func (s *SQLiteStore) CreateRelationship(ctx context.Context, rel *domain.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	now := time.Now()
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = now
	}
	rel.UpdatedAt = rel.CreatedAt

	tags, metadata, err := encodeEdge(rel)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO relationships (relationship_id, source_entity_id, target_entity_id, agent_id, tags, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.ID, rel.SourceEntityID, rel.TargetEntityID, rel.AgentID, tags, metadata,
		rel.CreatedAt.UnixMilli(), rel.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// mergeRelationshipSQL inserts the edge, or on a (source, target) conflict
// appends the tags the stored edge lacks, lays the new metadata keys over the
// stored ones and adds one interaction. A missing or non-numeric prior counter
// counts as zero.
const mergeRelationshipSQL = `
INSERT INTO relationships (relationship_id, source_entity_id, target_entity_id, agent_id, tags, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(source_entity_id, target_entity_id) DO UPDATE SET
	tags = (
		SELECT json_group_array(value) FROM (
			SELECT 0 AS src, key AS pos, value FROM json_each(relationships.tags)
			UNION ALL
			SELECT 1, key, value FROM json_each(excluded.tags)
			WHERE value NOT IN (SELECT value FROM json_each(relationships.tags))
			ORDER BY src, pos
		)
	),
	metadata = json_set(
		json_patch(COALESCE(relationships.metadata, '{}'), excluded.metadata),
		'$.interactions',
		CASE json_type(relationships.metadata, '$.interactions')
			WHEN 'integer' THEN json_extract(relationships.metadata, '$.interactions')
			WHEN 'real' THEN CAST(json_extract(relationships.metadata, '$.interactions') AS INTEGER)
			ELSE 0
		END + 1
	),
	updated_at = excluded.updated_at
RETURNING relationship_id, source_entity_id, target_entity_id, agent_id, tags, metadata, created_at, updated_at`

// MergeRelationship records one observation of the (source, target) pair of
// rel in a single statement, so concurrent observations of the same pair are
// all counted. A new edge starts at one interaction. rel is replaced by the
// stored edge; created reports whether the edge is new.
func (s *SQLiteStore) MergeRelationship(ctx context.Context, rel *domain.Relationship) (bool, error) {
	obs := *rel
	obs.ID = uuid.New().String()
	obs.Metadata = make(map[string]any, len(rel.Metadata)+1)
	for k, v := range rel.Metadata {
		obs.Metadata[k] = v
	}
	obs.Metadata[domain.MetadataInteractions] = 1
	now := time.Now().UnixMilli()

	tags, metadata, err := encodeEdge(&obs)
	if err != nil {
		return false, err
	}
	row := s.db.QueryRowContext(ctx, mergeRelationshipSQL,
		obs.ID, obs.SourceEntityID, obs.TargetEntityID, obs.AgentID, tags, metadata, now, now)

	var stored domain.Relationship
	if err := scanRelationship(row, &stored); err != nil {
		return false, fmt.Errorf("failed to merge relationship: %w", err)
	}
	*rel = stored
	return stored.ID == obs.ID, nil
}

func scanRelationship(row rowScanner, rel *domain.Relationship) error {
	var agentID, metadata sql.NullString
	var tags string
	var createdAt, updatedAt int64
	if err := row.Scan(&rel.ID, &rel.SourceEntityID, &rel.TargetEntityID, &agentID, &tags, &metadata, &createdAt, &updatedAt); err != nil {
		return err
	}
	rel.AgentID = agentID.String
	if err := json.Unmarshal([]byte(tags), &rel.Tags); err != nil {
		return fmt.Errorf("failed to decode tags of %s: %w", rel.ID, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rel.Metadata); err != nil {
			return fmt.Errorf("failed to decode metadata of %s: %w", rel.ID, err)
		}
	}
	rel.CreatedAt = time.UnixMilli(createdAt)
	rel.UpdatedAt = time.UnixMilli(updatedAt)
	return nil
}

func encodeEdge(rel *domain.Relationship) (string, sql.NullString, error) {
	tags, err := json.Marshal(nonNilStrings(rel.Tags))
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal tags: %w", err)
	}
	metadata, err := marshalMetadata(rel.Metadata)
	if err != nil {
		return "", sql.NullString{}, err
	}
	return string(tags), metadata, nil
}
