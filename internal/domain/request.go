package domain

// CreateMessageRequest is the inbound message submitted by a platform adapter.
type CreateMessageRequest struct {
	ID          string   `json:"id,omitempty"`
	EntityID    string   `json:"entity_id"`
	EntityName  string   `json:"entity_name,omitempty"`
	Text        string   `json:"text"`
	Source      string   `json:"source,omitempty"`
	InReplyTo   string   `json:"in_reply_to,omitempty"`
	ChannelType RoomType `json:"channel_type,omitempty"`
}

// CreateMessageResponse acknowledges an accepted message.
type CreateMessageResponse struct {
	MessageID string `json:"message_id"`
	RoomID    string `json:"room_id"`
}

// CreateReactionRequest is an inbound reaction to an earlier message.
type CreateReactionRequest struct {
	EntityID  string `json:"entity_id"`
	Reaction  string `json:"reaction"`
	InReplyTo string `json:"in_reply_to"`
	Source    string `json:"source,omitempty"`
}

// ParticipantStateRequest updates the agent's participation in a room.
type ParticipantStateRequest struct {
	State ParticipantState `json:"state"`
}

// WorldSyncRequest carries one membership sync event from a platform adapter.
type WorldSyncRequest struct {
	Type       EventType          `json:"type"`
	World      *WorldPayload      `json:"world,omitempty"`
	Membership *MembershipPayload `json:"membership,omitempty"`
}
