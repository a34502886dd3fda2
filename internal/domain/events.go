package domain

// MessagePayload accompanies MESSAGE_RECEIVED. Generation is the response
// token minted when the message was accepted.
type MessagePayload struct {
	RoomID     string  `json:"room_id"`
	Message    *Memory `json:"message"`
	Generation string  `json:"generation,omitempty"`
}

// ReactionPayload accompanies REACTION_RECEIVED.
type ReactionPayload struct {
	RoomID   string  `json:"room_id"`
	Reaction *Memory `json:"reaction"`
}

// WorldPayload accompanies WORLD_JOINED: a snapshot of rooms and members
// observed by a platform adapter.
type WorldPayload struct {
	WorldID      string        `json:"world_id"`
	Source       string        `json:"source"`
	Rooms        []Room        `json:"rooms"`
	Entities     []Entity      `json:"entities"`
	Participants []Participant `json:"participants"`
}

// MembershipPayload accompanies ENTITY_JOINED and ENTITY_LEFT.
type MembershipPayload struct {
	WorldID string `json:"world_id,omitempty"`
	RoomID  string `json:"room_id"`
	Entity  Entity `json:"entity"`
	Source  string `json:"source,omitempty"`
}
