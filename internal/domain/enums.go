// Package domain defines the core domain models for the agent runtime.
package domain

// RoomType represents the kind of conversation channel.
type RoomType string

const (
	RoomTypeDirect RoomType = "DM"
	RoomTypeGroup  RoomType = "GROUP"
	RoomTypeVoice  RoomType = "VOICE"
)

// ParticipantState is the agent's participation mode in a room.
type ParticipantState string

const (
	ParticipantStateNone     ParticipantState = ""
	ParticipantStateFollowed ParticipantState = "FOLLOWED"
	ParticipantStateMuted    ParticipantState = "MUTED"
)

// Valid reports whether s is a known participant state.
func (s ParticipantState) Valid() bool {
	switch s {
	case ParticipantStateNone, ParticipantStateFollowed, ParticipantStateMuted:
		return true
	}
	return false
}

// MemoryTable names a logical table of the memory store.
type MemoryTable string

const (
	MemoryTableMessages  MemoryTable = "messages"
	MemoryTableFacts     MemoryTable = "facts"
	MemoryTableReactions MemoryTable = "reactions"
)

// FactKind tags an extracted claim.
type FactKind string

const (
	FactKindFact    FactKind = "fact"
	FactKindOpinion FactKind = "opinion"
	FactKindStatus  FactKind = "status"
)

// ModelTier selects the size/quality class of the language model.
type ModelTier string

const (
	ModelTierSmall ModelTier = "small"
	ModelTierLarge ModelTier = "large"
)

// EventType names an external lifecycle event.
type EventType string

const (
	EventMessageReceived  EventType = "MESSAGE_RECEIVED"
	EventReactionReceived EventType = "REACTION_RECEIVED"
	EventWorldJoined      EventType = "WORLD_JOINED"
	EventEntityJoined     EventType = "ENTITY_JOINED"
	EventEntityLeft       EventType = "ENTITY_LEFT"
)
