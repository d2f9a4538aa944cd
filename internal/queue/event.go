// Package queue defines notification payloads exchanged over the
// message broker, the best-effort publisher, and the background
// consumer that turns them into log lines.
package queue

// NotificationEvent is the single envelope published to the
// notifications queue. Kind selects which of the optional fields are
// meaningful for downstream consumers (mailers, analytics); the
// primary database never needs to be re-queried.
type NotificationEvent struct {
	Kind       string `json:"kind"` // user.registered | recovery.requested | message.sent
	UserID     uint64 `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	RoomID     uint64 `json:"room_id,omitempty"`
	MessageID  uint64 `json:"message_id,omitempty"`
	Recovery   string `json:"recovery_token,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Event kinds.
const (
	KindUserRegistered    = "user.registered"
	KindRecoveryRequested = "recovery.requested"
	KindMessageSent       = "message.sent"
)
