package domain

import "time"

// Content is the payload of a Memory.
type Content struct {
	Text      string         `json:"text,omitempty"`
	Thought   string         `json:"thought,omitempty"`
	Actions   []string       `json:"actions,omitempty"`
	InReplyTo string         `json:"in_reply_to,omitempty"`
	Source    string         `json:"source,omitempty"`
	Channel   RoomType       `json:"channel_type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Memory is a persisted record in one of the logical memory tables.
// Messages, facts and reactions are all memories.
type Memory struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	EntityID  string    `json:"entity_id"`
	AgentID   string    `json:"agent_id"`
	Content   Content   `json:"content"`
	Embedding []float32 `json:"-"`
	Unique    bool      `json:"unique,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryQuery selects memories of one room from a logical table.
type MemoryQuery struct {
	Table  MemoryTable
	RoomID string
	Count  int
	Unique bool
}
