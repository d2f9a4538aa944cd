package chat

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps one participant's websocket with a write mutex so that
// fanout from concurrent handlers never interleaves frames.
type Conn struct {
	userID uint64
	ws     *websocket.Conn
	mu     sync.Mutex
}

func NewConn(ws *websocket.Conn, userID uint64) *Conn {
	return &Conn{userID: userID, ws: ws}
}

func (c *Conn) UserID() uint64 { return c.userID }

// Send writes one server event as a JSON text frame.
func (c *Conn) Send(ev ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(ev)
}

// ReadEvent blocks for the next client frame.
func (c *Conn) ReadEvent() (ClientEvent, error) {
	var ev ClientEvent
	err := c.ws.ReadJSON(&ev)
	return ev, err
}

func (c *Conn) Close() error { return c.ws.Close() }
