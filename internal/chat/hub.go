package chat

import (
	"log"
	"sync"
)

// Subscriber is one connected participant socket. The websocket Conn
// implements it; tests substitute in-memory fakes.
type Subscriber interface {
	UserID() uint64
	Send(ev ServerEvent) error
}

// Hub is the room registry: room id to the set of currently attached
// subscribers. Membership here tracks live connections only; who is
// allowed into a room is the engine's concern, resolved against the
// persisted participant set. Delivery is resolved at publish time, so
// participants who connect or disconnect between messages are picked
// up naturally.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint64]map[Subscriber]struct{})}
}

// Join attaches a subscriber to a room.
func (h *Hub) Join(roomID uint64, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[Subscriber]struct{})
		h.rooms[roomID] = subs
	}
	subs[s] = struct{}{}
}

// Leave detaches a subscriber from one room.
func (h *Hub) Leave(roomID uint64, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// LeaveAll detaches a subscriber from every room it joined. Called on
// socket disconnect.
func (h *Hub) LeaveAll(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, subs := range h.rooms {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Publish delivers an event to every subscriber attached to the room,
// skipping except (the initiating socket) when non-nil. A failed send
// affects only that subscriber; the fanout continues.
func (h *Hub) Publish(roomID uint64, ev ServerEvent, except Subscriber) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.rooms[roomID]))
	for s := range h.rooms[roomID] {
		if s != except {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(ev); err != nil {
			log.Printf("chat: send to user %d in room %d failed: %v", s.UserID(), roomID, err)
		}
	}
}
