// Package notifications fans daemon state changes out to local websocket clients.
package notifications

import (
	"encoding/json"
	"sync"
	"time"

	"hoodlink/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum control frame size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256
)

// Control is what local clients may send: {"action":"watch","room_id":"..."}.
type Control struct {
	Action string `json:"action"`
	RoomID string `json:"room_id"`
}

// Client is a middleman between one local websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection. Nil in tests.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	mu      sync.RWMutex
	watched map[string]struct{}
	closed  bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		watched: make(map[string]struct{}),
	}
}

// Watch limits chat frames to the given room. A client that watches nothing
// receives chat frames for every room.
func (c *Client) Watch(roomID string) {
	c.mu.Lock()
	c.watched[roomID] = struct{}{}
	c.mu.Unlock()
}

// Unwatch stops chat frames for roomID.
func (c *Client) Unwatch(roomID string) {
	c.mu.Lock()
	delete(c.watched, roomID)
	c.mu.Unlock()
}

// Wants reports whether chat frames for roomID go to this client.
func (c *Client) Wants(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watched) == 0 {
		return true
	}
	_, ok := c.watched[roomID]
	return ok
}

func (c *Client) handleControl(raw []byte) {
	var ctl Control
	if err := json.Unmarshal(raw, &ctl); err != nil || ctl.RoomID == "" {
		return
	}
	switch ctl.Action {
	case "watch":
		c.Watch(ctl.RoomID)
	case "unwatch":
		c.Unwatch(ctl.RoomID)
	}
}

// ReadPump reads control frames until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.GlobalLogger.Warn("local websocket read failed", "error", err)
			}
			return
		}
		c.handleControl(message)
	}
}

// WritePump writes queued frames and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a frame without blocking. A full buffer drops the frame and
// queues a messages_dropped notice so the client knows to refetch.
func (c *Client) TrySend(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		observability.LocalBackpressureDrops.WithLabelValues("closed").Inc()
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		observability.LocalBackpressureDrops.WithLabelValues("full").Inc()
		observability.GlobalLogger.Warn("local client buffer full, dropped frame")

		select {
		case c.Send <- droppedNotice:
		default:
		}
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
