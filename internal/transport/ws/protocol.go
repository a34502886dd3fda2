package ws

import "github.com/baYsed-BuidlAI/luna/internal/domain"

// Frame types sent by clients.
const (
	TypeHello    = "hello"
	TypeMessage  = "message"
	TypeReaction = "reaction"
)

// Frame types sent to clients.
const (
	TypeHelloAck = "hello_ack"
	TypeAccepted = "accepted"
	TypeReply    = "reply"
	TypeError    = "error"
)

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeHelloRequired  = "hello_required"
	ErrorCodeRejected       = "rejected"
)

// BaseFrame carries the fields common to all frames.
type BaseFrame struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
}

// HelloFrame binds a connection to a room as an entity.
type HelloFrame struct {
	BaseFrame
	EntityID    string          `json:"entity_id"`
	EntityName  string          `json:"entity_name,omitempty"`
	ChannelType domain.RoomType `json:"channel_type,omitempty"`
	Source      string          `json:"source,omitempty"`
}

// MessageFrame is a chat message from the bound entity.
type MessageFrame struct {
	BaseFrame
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

// ReactionFrame is a reaction of the bound entity to a message.
type ReactionFrame struct {
	BaseFrame
	Reaction  string `json:"reaction"`
	InReplyTo string `json:"in_reply_to"`
}

// AcceptedFrame acknowledges an inbound message or reaction.
type AcceptedFrame struct {
	BaseFrame
	MessageID string `json:"message_id"`
}

// ReplyFrame carries an agent response to every connection of the room.
type ReplyFrame struct {
	BaseFrame
	MessageID string   `json:"message_id"`
	EntityID  string   `json:"entity_id"`
	Text      string   `json:"text"`
	Actions   []string `json:"actions,omitempty"`
	InReplyTo string   `json:"in_reply_to,omitempty"`
}

// ErrorFrame reports a rejected frame.
type ErrorFrame struct {
	BaseFrame
	Code    string `json:"code"`
	Message string `json:"message"`
}
