package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/creator-marketplace/internal/model"
	"github.com/iliyamo/creator-marketplace/internal/repository"
)

// memChatStore backs RoomStore and MessageStore with maps.
type memChatStore struct {
	mu         sync.Mutex
	roomSeq    uint64
	messageSeq uint64
	rooms      map[uint64]model.Room
	messages   map[uint64]model.Message
}

func newMemChatStore() *memChatStore {
	return &memChatStore{
		rooms:    make(map[uint64]model.Room),
		messages: make(map[uint64]model.Message),
	}
}

func (s *memChatStore) CreateRoom(_ context.Context, participantIDs []uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomSeq++
	room := model.Room{ID: s.roomSeq, ParticipantIDs: participantIDs, CreatedAt: time.Now().UTC()}
	s.rooms[room.ID] = room
	return room, nil
}

func (s *memChatStore) RoomByID(_ context.Context, id uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return room, nil
}

func (s *memChatStore) RoomsByParticipant(_ context.Context, userID uint64) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Room
	for _, room := range s.rooms {
		if room.HasParticipant(userID) {
			out = append(out, room)
		}
	}
	return out, nil
}

func (s *memChatStore) CreateMessage(_ context.Context, roomID, senderID uint64, body string, parentID *uint64) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageSeq++
	msg := model.Message{
		ID: s.messageSeq, RoomID: roomID, SenderID: senderID,
		ParentID: parentID, Body: body, CreatedAt: time.Now().UTC(),
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *memChatStore) MessageByID(_ context.Context, id uint64) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return model.Message{}, repository.ErrNotFound
	}
	return msg, nil
}

func (s *memChatStore) MessagesByRoom(_ context.Context, roomID uint64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	// Newest first, matching the SQL repository's ordering.
	for id := s.messageSeq; id >= 1; id-- {
		if msg, ok := s.messages[id]; ok && msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *memChatStore) DeleteMessage(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

// fakeSub records every event delivered to it.
type fakeSub struct {
	mu     sync.Mutex
	userID uint64
	events []ServerEvent
	fail   bool
}

func newFakeSub(userID uint64) *fakeSub { return &fakeSub{userID: userID} }

func (f *fakeSub) UserID() uint64 { return f.userID }

func (f *fakeSub) Send(ev ServerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("socket gone")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSub) received() []ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ServerEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeSub) last(t *testing.T) ServerEvent {
	t.Helper()
	evs := f.received()
	require.NotEmpty(t, evs)
	return evs[len(evs)-1]
}

// testEngine builds an engine over in-memory stores with one room
// among users 1 and 2, and users 1 and 2 attached through the hub.
func testEngine(t *testing.T) (*Engine, *memChatStore, model.Room, *fakeSub, *fakeSub) {
	t.Helper()
	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	room, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)

	a, b := newFakeSub(1), newFakeSub(2)
	require.NoError(t, eng.Join(ctx, a, room.ID))
	require.NoError(t, eng.Join(ctx, b, room.ID))
	return eng, store, room, a, b
}

func TestStartRoom(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	room, err := eng.StartRoom(ctx, 1, []uint64{2, 2, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, room.ParticipantIDs)

	// The actor alone is not a room.
	_, err = eng.StartRoom(ctx, 1, []uint64{1, 1})
	assert.Error(t, err)
}

func TestJoinSnapshotAndAnnounce(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	room, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)
	_, err = store.CreateMessage(ctx, room.ID, 1, "old", nil)
	require.NoError(t, err)

	a := newFakeSub(1)
	require.NoError(t, eng.Join(ctx, a, room.ID))

	// The joiner gets the snapshot with the existing log.
	snap := a.last(t)
	assert.Equal(t, EventRoomSnapshot, snap.Type)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "old", snap.Messages[0].Body)

	// A second joiner triggers user:join for the first, and the second
	// gets a snapshot but no join notice about itself.
	b := newFakeSub(2)
	require.NoError(t, eng.Join(ctx, b, room.ID))

	joinEv := a.last(t)
	assert.Equal(t, EventUserJoin, joinEv.Type)
	assert.Equal(t, uint64(2), joinEv.UserID)

	for _, ev := range b.received() {
		assert.NotEqual(t, EventUserJoin, ev.Type)
	}
}

func TestJoinRejectsNonParticipant(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	room, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)

	err = eng.Join(ctx, newFakeSub(9), room.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	err = eng.Join(ctx, newFakeSub(1), 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSendFanout(t *testing.T) {
	t.Parallel()

	eng, _, room, a, b := testEngine(t)
	ctx := context.Background()

	msg, err := eng.Send(ctx, 1, room.ID, "hi")
	require.NoError(t, err)
	assert.Nil(t, msg.ParentID)

	// Both attached participants see message:new, sender included.
	for _, sub := range []*fakeSub{a, b} {
		ev := sub.last(t)
		assert.Equal(t, EventMessageNew, ev.Type)
		require.NotNil(t, ev.Message)
		assert.Equal(t, "hi", ev.Message.Body)
		assert.Equal(t, uint64(1), ev.Message.SenderID)
		assert.Nil(t, ev.Message.ParentID)
	}
}

func TestSendRequiresMembership(t *testing.T) {
	t.Parallel()

	eng, _, room, _, _ := testEngine(t)

	_, err := eng.Send(context.Background(), 9, room.ID, "hi")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestReplyThreadsUnderParent(t *testing.T) {
	t.Parallel()

	eng, _, room, _, b := testEngine(t)
	ctx := context.Background()

	parent, err := eng.Send(ctx, 1, room.ID, "question")
	require.NoError(t, err)

	reply, err := eng.Reply(ctx, 2, room.ID, parent.ID, "answer")
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	ev := b.last(t)
	assert.Equal(t, EventMessageNew, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "answer", ev.Message.Body)
}

func TestReplyRejectsCrossRoomParent(t *testing.T) {
	t.Parallel()

	eng, _, room, _, _ := testEngine(t)
	ctx := context.Background()

	other, err := eng.StartRoom(ctx, 1, []uint64{3})
	require.NoError(t, err)
	stray, err := eng.Send(ctx, 1, other.ID, "elsewhere")
	require.NoError(t, err)

	// Replying in room to a parent that lives in another room.
	_, err = eng.Reply(ctx, 1, room.ID, stray.ID, "answer")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = eng.Reply(ctx, 1, room.ID, 404, "answer")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestForwardCopiesIntoTargetRoom(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	src, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)
	dst, err := eng.StartRoom(ctx, 1, []uint64{3})
	require.NoError(t, err)

	inSrc := newFakeSub(2)
	inDst := newFakeSub(3)
	require.NoError(t, eng.Join(ctx, inSrc, src.ID))
	require.NoError(t, eng.Join(ctx, inDst, dst.ID))

	original, err := eng.Send(ctx, 1, src.ID, "pass it on")
	require.NoError(t, err)

	copied, err := eng.Forward(ctx, 1, original.ID, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, dst.ID, copied.RoomID)
	assert.Equal(t, "pass it on", copied.Body)
	assert.Nil(t, copied.ParentID)
	assert.NotEqual(t, original.ID, copied.ID)

	// Copy, not move: the original survives in the source room.
	kept, err := store.MessageByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, src.ID, kept.RoomID)

	// Fanout hits the target room only.
	ev := inDst.last(t)
	assert.Equal(t, EventMessageNew, ev.Type)
	assert.Equal(t, dst.ID, ev.RoomID)
	for _, ev := range inSrc.received() {
		if ev.Type == EventMessageNew {
			assert.NotEqual(t, copied.ID, ev.Message.ID)
		}
	}
}

func TestForwardRequiresBothMemberships(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	src, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)
	dst, err := eng.StartRoom(ctx, 3, []uint64{4})
	require.NoError(t, err)

	msg, err := eng.Send(ctx, 1, src.ID, "secret")
	require.NoError(t, err)

	// Member of the source but not the target.
	_, err = eng.Forward(ctx, 1, msg.ID, dst.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// Member of the target but not the source.
	_, err = eng.Forward(ctx, 3, msg.ID, dst.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestDeleteBroadcastsAndRemoves(t *testing.T) {
	t.Parallel()

	eng, store, room, _, b := testEngine(t)
	ctx := context.Background()

	msg, err := eng.Send(ctx, 1, room.ID, "oops")
	require.NoError(t, err)

	require.NoError(t, eng.Delete(ctx, 1, msg.ID))

	ev := b.last(t)
	assert.Equal(t, EventMessageDeleted, ev.Type)
	assert.Equal(t, msg.ID, ev.MessageID)

	_, err = store.MessageByID(ctx, msg.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The room log no longer contains it.
	_, msgs, err := eng.Room(ctx, 1, room.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Deleting again reports the message gone.
	assert.ErrorIs(t, eng.Delete(ctx, 1, msg.ID), repository.ErrNotFound)
}

func TestDetachStopsDelivery(t *testing.T) {
	t.Parallel()

	eng, _, room, _, b := testEngine(t)
	ctx := context.Background()

	eng.Detach(b)
	before := len(b.received())

	_, err := eng.Send(ctx, 1, room.ID, "anyone there?")
	require.NoError(t, err)

	assert.Len(t, b.received(), before)
}

func TestPublishIsolatesFailingSubscriber(t *testing.T) {
	t.Parallel()

	eng, _, room, a, b := testEngine(t)
	ctx := context.Background()

	a.mu.Lock()
	a.fail = true
	a.mu.Unlock()

	_, err := eng.Send(ctx, 2, room.ID, "still flows")
	require.NoError(t, err)

	ev := b.last(t)
	assert.Equal(t, EventMessageNew, ev.Type)
	assert.Equal(t, "still flows", ev.Message.Body)
}

func TestRoomsByParticipant(t *testing.T) {
	t.Parallel()

	store := newMemChatStore()
	eng := NewEngine(store, store, NewHub())
	ctx := context.Background()

	r1, err := eng.StartRoom(ctx, 1, []uint64{2})
	require.NoError(t, err)
	_, err = eng.StartRoom(ctx, 2, []uint64{3})
	require.NoError(t, err)

	rooms, err := eng.Rooms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, r1.ID, rooms[0].ID)

	// Room access checks membership.
	_, _, err = eng.Room(ctx, 3, r1.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
