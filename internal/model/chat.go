package model

import "time"

// Room mirrors the `rooms` table plus its participant join table.
// A room is shared by its fixed participant set; only listed
// participants may read or write it.
type Room struct {
	ID             uint64    `json:"id"`
	ParticipantIDs []uint64  `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is in the room's participant set.
func (r Room) HasParticipant(userID uint64) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Message mirrors the `messages` table.  ParentID links a threaded
// reply to its parent; a forwarded message is a fresh copy and
// carries no parent.
type Message struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	SenderID  uint64    `json:"sender_id"`
	ParentID  *uint64   `json:"parent_id,omitempty"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
