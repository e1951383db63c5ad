package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	// Time allowed for the open and connect exchange.
	handshakeTimeout = 10 * time.Second

	// Maximum frame size accepted from the server.
	maxMessageSize = 1 << 20

	sendBuffer  = 256
	eventBuffer = 256

	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
)

var (
	// ErrClosed is returned by Emit after the connection has ended.
	ErrClosed = errors.New("socketio: connection closed")
	// ErrServerDisconnect is the close reason when the server ends the session.
	ErrServerDisconnect = errors.New("socketio: server disconnected")
	// ErrSendBufferFull is returned when outbound frames are not draining.
	ErrSendBufferFull = errors.New("socketio: send buffer full")
)

// Options configures Dial.
type Options struct {
	// URL is the server origin, http(s) or ws(s).
	URL string
	// Path is the Engine.IO endpoint path. Defaults to /socket.io/.
	Path string
	// Token is sent as {"token": ...} in the connect packet when set.
	Token  string
	Header http.Header
	Dialer *websocket.Dialer
}

func (o Options) endpoint() (string, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return "", fmt.Errorf("socketio: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("socketio: unsupported scheme %q", u.Scheme)
	}
	u.Path = o.Path
	if u.Path == "" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Client is one Socket.IO session. Inbound events are delivered in order on
// Events, which is closed once the connection ends.
type Client struct {
	conn         *websocket.Conn
	sid          string
	pingInterval time.Duration
	pingTimeout  time.Duration

	send   chan []byte
	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial opens the websocket, performs the Engine.IO open and Socket.IO connect
// exchange, and starts the read and write pumps.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	endpoint, err := opts.endpoint()
	if err != nil {
		return nil, err
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("socketio: dial: %w", err)
	}

	c := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	if err := c.handshake(ctx, opts.Token); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *Client) handshake(ctx context.Context, token string) error {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)
	_ = c.conn.SetWriteDeadline(deadline)
	defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()

	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("socketio: read open: %w", err)
	}
	if len(frame) == 0 || frame[0] != engineOpen {
		return fmt.Errorf("socketio: expected open packet, got %q", frame)
	}
	var hs handshake
	if err := json.Unmarshal(frame[1:], &hs); err != nil {
		return fmt.Errorf("socketio: decode open: %w", err)
	}
	c.pingInterval = time.Duration(hs.PingInterval) * time.Millisecond
	if c.pingInterval <= 0 {
		c.pingInterval = defaultPingInterval
	}
	c.pingTimeout = time.Duration(hs.PingTimeout) * time.Millisecond
	if c.pingTimeout <= 0 {
		c.pingTimeout = defaultPingTimeout
	}

	connect := Packet{Type: PacketConnect}
	if token != "" {
		connect.Data, _ = json.Marshal(map[string]string{"token": token})
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, append([]byte{engineMessage}, connect.Encode()...)); err != nil {
		return fmt.Errorf("socketio: write connect: %w", err)
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("socketio: read connect: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case enginePing:
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte{enginePong}); err != nil {
				return fmt.Errorf("socketio: write pong: %w", err)
			}
		case engineClose:
			return ErrServerDisconnect
		case engineMessage:
			p, err := DecodePacket(frame[1:])
			if err != nil {
				return err
			}
			switch p.Type {
			case PacketConnect:
				var ack struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(p.Data, &ack)
				c.sid = ack.SID
				return nil
			case PacketConnectError:
				var ce connectError
				_ = json.Unmarshal(p.Data, &ce)
				return fmt.Errorf("socketio: connect rejected: %s", ce.Message)
			}
		}
	}
}

// ID returns the Socket.IO session id assigned by the server.
func (c *Client) ID() string { return c.sid }

// Events returns the inbound event stream.
func (c *Client) Events() <-chan Event { return c.events }

// Done is closed when the connection ends for any reason.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Emit queues an event for the server. It never blocks.
func (c *Client) Emit(event string, payload any) error {
	p, err := NewEventPacket(event, payload)
	if err != nil {
		return err
	}
	return c.queue(append([]byte{engineMessage}, p.Encode()...))
}

// Close ends the session with a disconnect packet.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	return nil
}

func (c *Client) queue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// readPump is the only sender on c.events.
func (c *Client) readPump() {
	defer close(c.events)

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		if len(frame) == 0 {
			continue
		}

		switch frame[0] {
		case enginePing:
			_ = c.queue([]byte{enginePong})
		case engineClose:
			c.fail(ErrServerDisconnect)
			return
		case engineNoop:
		case engineMessage:
			p, err := DecodePacket(frame[1:])
			if err != nil {
				continue
			}
			switch p.Type {
			case PacketEvent:
				ev, err := EventFromPacket(p)
				if err != nil {
					continue
				}
				select {
				case c.events <- ev:
				case <-c.done:
					return
				}
			case PacketDisconnect:
				c.fail(ErrServerDisconnect)
				return
			}
		}
	}
}

// writePump owns every write after the handshake and closes the socket.
func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.fail(err)
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if errors.Is(c.Err(), ErrClosed) {
				disconnect := Packet{Type: PacketDisconnect}
				_ = c.conn.WriteMessage(websocket.TextMessage, append([]byte{engineMessage}, disconnect.Encode()...))
			}
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
