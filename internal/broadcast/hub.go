package broadcast

import (
	"context"
	"sync"

	"chaosball/internal/logging"
	"chaosball/pkg/services/match"
)

// Hub maintains the set of connected broadcast viewers and pushes every
// state snapshot to them
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan match.Snapshot
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan match.Snapshot, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Publish queues a snapshot for delivery to every connected client.
// It never blocks the orchestrator: if the hub is backed up the
// snapshot is dropped (the next commit supersedes it anyway).
func (h *Hub) Publish(snap match.Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
		logging.Default.Warn("broadcast queue full, dropping snapshot")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			h.clientsMu.Unlock()
			logging.Default.Info("client %s connected (%d total)", c.ID, len(h.clients))

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.clientsMu.Unlock()
			logging.Default.Info("client %s disconnected", c.ID)

		case snap := <-h.broadcast:
			h.clientsMu.RLock()
			for c := range h.clients {
				select {
				case c.Send <- snap:
				default:
					// Slow consumer; skip this frame for them
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
	logging.Default.Info("hub shut down")
}
