package chat

import (
	"context"
	"errors"

	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/repository"
)

// RoomStore persists rooms with their participant sets.
type RoomStore interface {
	CreateRoom(ctx context.Context, participantIDs []uint64) (model.Room, error)
	RoomByID(ctx context.Context, id uint64) (model.Room, error)
	RoomsByParticipant(ctx context.Context, userID uint64) ([]model.Room, error)
}

// MessageStore persists messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, roomID, senderID uint64, body string, parentID *uint64) (model.Message, error)
	MessageByID(ctx context.Context, id uint64) (model.Message, error)
	MessagesByRoom(ctx context.Context, roomID uint64) ([]model.Message, error)
	DeleteMessage(ctx context.Context, id uint64) error
}

// Engine gates every room operation on persisted participant
// membership, mutates the message log, and fans the resulting event
// out through the hub. Operations return repository.ErrForbidden when
// the actor is not a participant and repository.ErrNotFound when the
// referenced room or message is absent.
type Engine struct {
	rooms    RoomStore
	messages MessageStore
	hub      *Hub
}

func NewEngine(rooms RoomStore, messages MessageStore, hub *Hub) *Engine {
	return &Engine{rooms: rooms, messages: messages, hub: hub}
}

// Join attaches a connected subscriber to a room: the requester alone
// receives the full snapshot (newest message first) and the other
// attached participants get a user:join event.
func (e *Engine) Join(ctx context.Context, sub Subscriber, roomID uint64) error {
	room, err := e.memberRoom(ctx, roomID, sub.UserID())
	if err != nil {
		return err
	}
	msgs, err := e.messages.MessagesByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	e.hub.Join(room.ID, sub)
	if err := sub.Send(ServerEvent{Type: EventRoomSnapshot, RoomID: room.ID, Messages: msgs}); err != nil {
		return err
	}
	e.hub.Publish(room.ID, ServerEvent{Type: EventUserJoin, RoomID: room.ID, UserID: sub.UserID()}, sub)
	return nil
}

// Detach removes a subscriber from every room. Called when its socket
// closes.
func (e *Engine) Detach(sub Subscriber) {
	e.hub.LeaveAll(sub)
}

// Send appends a parentless message and broadcasts it to the room.
func (e *Engine) Send(ctx context.Context, actor, roomID uint64, body string) (model.Message, error) {
	if _, err := e.memberRoom(ctx, roomID, actor); err != nil {
		return model.Message{}, err
	}
	msg, err := e.messages.CreateMessage(ctx, roomID, actor, body, nil)
	if err != nil {
		return model.Message{}, err
	}
	e.hub.Publish(roomID, ServerEvent{Type: EventMessageNew, RoomID: roomID, Message: &msg}, nil)
	return msg, nil
}

// Reply appends a threaded message. The parent must exist and belong
// to the room being replied in.
func (e *Engine) Reply(ctx context.Context, actor, roomID, parentID uint64, body string) (model.Message, error) {
	if _, err := e.memberRoom(ctx, roomID, actor); err != nil {
		return model.Message{}, err
	}
	parent, err := e.messages.MessageByID(ctx, parentID)
	if err != nil {
		return model.Message{}, err
	}
	if parent.RoomID != roomID {
		return model.Message{}, repository.ErrNotFound
	}
	msg, err := e.messages.CreateMessage(ctx, roomID, actor, body, &parent.ID)
	if err != nil {
		return model.Message{}, err
	}
	e.hub.Publish(roomID, ServerEvent{Type: EventMessageNew, RoomID: roomID, Message: &msg}, nil)
	return msg, nil
}

// Forward copies a message's body into another room. The actor must
// be a participant of both the source message's room and the target.
// The original message is left untouched and the copy carries no
// parent link.
func (e *Engine) Forward(ctx context.Context, actor, sourceMessageID, targetRoomID uint64) (model.Message, error) {
	src, err := e.messages.MessageByID(ctx, sourceMessageID)
	if err != nil {
		return model.Message{}, err
	}
	if _, err := e.memberRoom(ctx, src.RoomID, actor); err != nil {
		return model.Message{}, err
	}
	if _, err := e.memberRoom(ctx, targetRoomID, actor); err != nil {
		return model.Message{}, err
	}
	msg, err := e.messages.CreateMessage(ctx, targetRoomID, actor, src.Body, nil)
	if err != nil {
		return model.Message{}, err
	}
	e.hub.Publish(targetRoomID, ServerEvent{Type: EventMessageNew, RoomID: targetRoomID, Message: &msg}, nil)
	return msg, nil
}

// Delete removes a message and broadcasts the deletion to its room.
func (e *Engine) Delete(ctx context.Context, actor, messageID uint64) error {
	msg, err := e.messages.MessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := e.memberRoom(ctx, msg.RoomID, actor); err != nil {
		return err
	}
	if err := e.messages.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}
	e.hub.Publish(msg.RoomID, ServerEvent{Type: EventMessageDeleted, RoomID: msg.RoomID, MessageID: msg.ID}, nil)
	return nil
}

// StartRoom creates a room among the given participants. The actor is
// always included; a room needs at least two distinct participants.
func (e *Engine) StartRoom(ctx context.Context, actor uint64, participantIDs []uint64) (model.Room, error) {
	seen := map[uint64]struct{}{actor: {}}
	ids := []uint64{actor}
	for _, id := range participantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return model.Room{}, errors.New("a room needs at least two participants")
	}
	return e.rooms.CreateRoom(ctx, ids)
}

// Rooms lists the rooms the user participates in.
func (e *Engine) Rooms(ctx context.Context, userID uint64) ([]model.Room, error) {
	return e.rooms.RoomsByParticipant(ctx, userID)
}

// Room returns one room with its log, newest first, after a
// membership check.
func (e *Engine) Room(ctx context.Context, actor, roomID uint64) (model.Room, []model.Message, error) {
	room, err := e.memberRoom(ctx, roomID, actor)
	if err != nil {
		return model.Room{}, nil, err
	}
	msgs, err := e.messages.MessagesByRoom(ctx, roomID)
	if err != nil {
		return model.Room{}, nil, err
	}
	return room, msgs, nil
}

func (e *Engine) memberRoom(ctx context.Context, roomID, userID uint64) (model.Room, error) {
	room, err := e.rooms.RoomByID(ctx, roomID)
	if err != nil {
		return model.Room{}, err
	}
	if !room.HasParticipant(userID) {
		return model.Room{}, repository.ErrForbidden
	}
	return room, nil
}
