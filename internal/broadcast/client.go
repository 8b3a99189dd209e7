package broadcast

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"chaosball/internal/logging"
	"chaosball/pkg/services/match"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Buffer size for outbound snapshots
	sendBufferSize = 16
)

// Client represents one connected broadcast viewer
type Client struct {
	ID   string
	conn *websocket.Conn
	Send chan match.Snapshot
	hub  *Hub
}

// NewClient creates a new client instance
func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		Send: make(chan match.Snapshot, sendBufferSize),
		hub:  hub,
	}
}

// WritePump pushes snapshots and pings to the peer
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(snap); err != nil {
				logging.Default.Warn("write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains inbound frames so pongs and close frames are handled.
// Viewers are read-only; intents arrive over HTTP, not the socket.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Default.Debug("read error for client %s: %v", c.ID, err)
			}
			return
		}
	}
}
