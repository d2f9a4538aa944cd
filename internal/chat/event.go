// Package chat implements the room message protocol: join, send,
// reply, forward and delete, with fanout to the room's currently
// connected participants.
package chat

import "github.com/iliyamo/creator-marketplace/internal/model"

// Inbound discriminators. Every client frame carries one of these in
// its "type" field; anything else is answered with an error event.
const (
	EventJoin           = "join"
	EventMessageNew     = "message:new"
	EventMessageReply   = "message:reply"
	EventMessageForward = "message:forward"
	EventMessageDelete  = "message:delete"
)

// Outbound discriminators.
const (
	EventRoomSnapshot   = "room:snapshot"
	EventUserJoin       = "user:join"
	EventMessageDeleted = "message:deleted"
	EventError          = "error"
)

// ClientEvent is one inbound socket frame.
type ClientEvent struct {
	Type         string `json:"type"`
	RoomID       uint64 `json:"room_id,omitempty"`
	MessageID    uint64 `json:"message_id,omitempty"`
	TargetRoomID uint64 `json:"target_room_id,omitempty"`
	Body         string `json:"message,omitempty"`
}

// ServerEvent is one outbound socket frame. Fields are populated
// according to Type; unused ones are omitted from the wire form.
type ServerEvent struct {
	Type      string          `json:"type"`
	RoomID    uint64          `json:"room_id,omitempty"`
	UserID    uint64          `json:"user_id,omitempty"`
	MessageID uint64          `json:"message_id,omitempty"`
	Message   *model.Message  `json:"msg,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
	Error     string          `json:"error,omitempty"`
}
