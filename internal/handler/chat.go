package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/creator-marketplace/internal/chat"
	"github.com/iliyamo/creator-marketplace/internal/middleware"
	"github.com/iliyamo/creator-marketplace/internal/queue"
	"github.com/iliyamo/creator-marketplace/internal/repository"
)

// ChatHandler exposes the room engine over a websocket plus a small
// REST surface for listing and starting rooms.
type ChatHandler struct {
	Engine *chat.Engine
}

func NewChatHandler(engine *chat.Engine) *ChatHandler {
	return &ChatHandler{Engine: engine}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the authenticated request to a websocket and runs
// its read loop. Each inbound frame is routed by its type
// discriminator; a failing operation answers only the initiating
// socket with an error event and the loop continues; one bad message
// never tears down the room or the connection.
func (h *ChatHandler) ServeWS(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := chat.NewConn(ws, id.ID)
	defer func() {
		h.Engine.Detach(conn)
		_ = conn.Close()
	}()
	log.Printf("chat: user %d connected", id.ID)

	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			log.Printf("chat: user %d disconnected: %v", id.ID, err)
			return nil
		}
		h.dispatch(c.Request().Context(), conn, id.ID, ev)
	}
}

func (h *ChatHandler) dispatch(ctx context.Context, conn *chat.Conn, actor uint64, ev chat.ClientEvent) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	switch ev.Type {
	case chat.EventJoin:
		err = h.Engine.Join(opCtx, conn, ev.RoomID)
	case chat.EventMessageNew:
		m, sendErr := h.Engine.Send(opCtx, actor, ev.RoomID, ev.Body)
		if sendErr == nil {
			_ = queue.Publish(opCtx, queue.NotificationEvent{
				Kind:       queue.KindMessageSent,
				UserID:     actor,
				RoomID:     m.RoomID,
				MessageID:  m.ID,
				OccurredAt: time.Now().UTC().Format(time.RFC3339),
			})
		}
		err = sendErr
	case chat.EventMessageReply:
		_, err = h.Engine.Reply(opCtx, actor, ev.RoomID, ev.MessageID, ev.Body)
	case chat.EventMessageForward:
		_, err = h.Engine.Forward(opCtx, actor, ev.MessageID, ev.TargetRoomID)
	case chat.EventMessageDelete:
		err = h.Engine.Delete(opCtx, actor, ev.MessageID)
	default:
		err = errors.New("unknown event type")
	}
	if err != nil {
		if sendErr := conn.Send(chat.ServerEvent{Type: chat.EventError, Error: chatErrorReason(err)}); sendErr != nil {
			log.Printf("chat: error event to user %d failed: %v", actor, sendErr)
		}
	}
}

// chatErrorReason maps engine failures onto the stable reasons put on
// the wire. Persistence faults are logged and collapsed to a generic
// message.
func chatErrorReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrForbidden):
		return "forbidden"
	case errors.Is(err, repository.ErrNotFound):
		return "not found"
	default:
		log.Printf("chat: operation failed: %v", err)
		return "internal error"
	}
}

// ----- REST surface -----

type startRoomReq struct {
	ParticipantIDs []uint64 `json:"participant_ids"`
}

// Rooms lists the rooms the authenticated user participates in.
func (h *ChatHandler) Rooms(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Engine.Rooms(ctx, id.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load rooms failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"chats": rooms})
}

// StartRoom creates a room between the caller and the listed
// participants.
func (h *ChatHandler) StartRoom(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req startRoomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room, err := h.Engine.StartRoom(ctx, id.ID, req.ParticipantIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "participant not found"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"chat": room})
}

// Room returns one room with its message log, newest first.
func (h *ChatHandler) Room(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room, msgs, err := h.Engine.Room(ctx, id.ID, roomID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"chat": room, "messages": msgs})
}
