package domain

import "time"

// Room is a bounded message channel.
type Room struct {
	RoomID    string    `json:"room_id"`
	WorldID   string    `json:"world_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Type      RoomType  `json:"type"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is a conversation participant. Names keep observation order and are
// not deduplicated by case.
type Entity struct {
	EntityID  string         `json:"entity_id"`
	Names     []string       `json:"names"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Participant links an entity to a room.
type Participant struct {
	RoomID   string           `json:"room_id"`
	EntityID string           `json:"entity_id"`
	State    ParticipantState `json:"state"`
}
