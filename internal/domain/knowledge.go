package domain

import (
	"strings"
	"time"
)

// Fact is a write-once claim distilled from a conversation.
type Fact struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	EntityID  string    `json:"entity_id"`
	Claim     string    `json:"claim"`
	Kind      FactKind  `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// ToMemory converts the fact into its stored form in the facts table.
func (f Fact) ToMemory(agentID string) *Memory {
	return &Memory{
		ID:       f.ID,
		RoomID:   f.RoomID,
		EntityID: f.EntityID,
		AgentID:  agentID,
		Content: Content{
			Text:     f.Claim,
			Metadata: map[string]any{"kind": string(f.Kind)},
		},
		Unique:    true,
		CreatedAt: f.CreatedAt,
	}
}

// FactFromMemory reads a fact back from the facts table.
func FactFromMemory(m Memory) Fact {
	kind := FactKindFact
	if v, ok := m.Content.Metadata["kind"].(string); ok && v != "" {
		kind = FactKind(strings.ToLower(v))
	}
	return Fact{
		ID:        m.ID,
		RoomID:    m.RoomID,
		EntityID:  m.EntityID,
		Claim:     m.Content.Text,
		Kind:      kind,
		CreatedAt: m.CreatedAt,
	}
}

// MetadataInteractions is the metadata key counting re-observations of an edge.
const MetadataInteractions = "interactions"

// Relationship is a directed edge between two entities. At most one edge is
// stored per (source, target) pair.
type Relationship struct {
	ID             string         `json:"id"`
	SourceEntityID string         `json:"source_entity_id"`
	TargetEntityID string         `json:"target_entity_id"`
	AgentID        string         `json:"agent_id"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Interactions returns the interaction counter, 0 when missing or malformed.
func (r Relationship) Interactions() int {
	switch v := r.Metadata[MetadataInteractions].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}
