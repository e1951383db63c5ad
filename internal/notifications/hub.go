package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"hoodlink/internal/chat"
	"hoodlink/internal/feed"
	"hoodlink/internal/inbox"
	"hoodlink/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxClients = 64

// ErrTooManyClients is returned by Register when the hub is full.
var ErrTooManyClients = errors.New("local client limit reached")

// Frame types.
const (
	FrameInbox    = "inbox"
	FrameChat     = "chat"
	FrameBusiness = "business"
	FrameFeed     = "feed"
)

// Frame is the JSON envelope written to local clients.
type Frame struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload"`
}

// Hub tracks local websocket clients and broadcasts frames to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a connection. conn may be nil in tests.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("hub is shut down")
	}
	if len(h.clients) >= maxClients {
		return nil, ErrTooManyClients
	}
	c := newClient(h, conn)
	h.clients[c] = struct{}{}
	observability.LocalClients.Inc()
	return c, nil
}

// UnregisterClient removes a client and closes its send channel.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		observability.LocalClients.Dec()
		c.close()
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends f to every client accepted by want. A nil want accepts all.
func (h *Hub) Broadcast(f Frame, want func(*Client) bool) int {
	data, err := json.Marshal(f)
	if err != nil {
		observability.GlobalLogger.Error("failed to encode local frame", "type", f.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients {
		if want != nil && !want(c) {
			continue
		}
		if c.TrySend(data) {
			sent++
		}
	}
	return sent
}

// PublishInbox sends an inbox change to every client.
func (h *Hub) PublishInbox(ch inbox.Change) {
	h.Broadcast(Frame{Type: FrameInbox, RoomID: ch.RoomID, Payload: ch}, nil)
}

// PublishChat sends a chat event to the clients watching its room.
func (h *Hub) PublishChat(ev chat.Event) {
	h.Broadcast(Frame{Type: FrameChat, RoomID: ev.RoomID, Payload: ev}, func(c *Client) bool {
		return c.Wants(ev.RoomID)
	})
}

// PublishFeed forwards a feed delta to every client.
func (h *Hub) PublishFeed(ch feed.Change) {
	h.Broadcast(Frame{Type: FrameFeed, Payload: ch}, nil)
}

// PublishBusiness tells every client which socket event changed the business page.
func (h *Hub) PublishBusiness(businessID, event string) {
	h.Broadcast(Frame{Type: FrameBusiness, Payload: map[string]string{
		"business_id": businessID,
		"event":       event,
	}}, nil)
}

// Shutdown closes every client. Their write pumps send a going-away close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		observability.LocalClients.Dec()
		c.close()
	}
	return nil
}
