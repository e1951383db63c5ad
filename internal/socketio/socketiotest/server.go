// Package socketiotest provides an in-process Socket.IO server for tests.
package socketiotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"hoodlink/internal/socketio"

	"github.com/gorilla/websocket"
)

// Server accepts Socket.IO clients and records the events they emit.
type Server struct {
	*httptest.Server

	// Token, when set, must match the connect auth token.
	Token string

	upgrader websocket.Upgrader
	received chan socketio.Event

	mu      sync.Mutex
	conns   map[*conn]struct{}
	dials   int
	nextSID int
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{
		received: make(chan socketio.Event, 1024),
		conns:    make(map[*conn]struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Received yields every event emitted by any connected client, in arrival order.
func (s *Server) Received() <-chan socketio.Event { return s.received }

// Connections returns the number of live sessions.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Dials returns how many sessions completed the connect exchange.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Emit sends an event to every connected client.
func (s *Server) Emit(event string, payload any) {
	p, err := socketio.NewEventPacket(event, payload)
	if err != nil {
		panic(err)
	}
	frame := "4" + string(p.Encode())
	for _, c := range s.snapshot() {
		_ = c.write(frame)
	}
}

// DropAll abruptly closes every session, as a network failure would.
func (s *Server) DropAll() {
	for _, c := range s.snapshot() {
		_ = c.ws.Close()
	}
}

func (s *Server) snapshot() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	s.mu.Lock()
	s.nextSID++
	sid := "sid-" + strconv.Itoa(s.nextSID)
	s.mu.Unlock()

	open, _ := json.Marshal(map[string]any{"sid": "e" + sid, "pingInterval": 25000, "pingTimeout": 20000, "maxPayload": 1000000})
	if c.write("0"+string(open)) != nil {
		return
	}

	_, frame, err := ws.ReadMessage()
	if err != nil || len(frame) < 2 || frame[0] != '4' {
		return
	}
	p, err := socketio.DecodePacket(frame[1:])
	if err != nil || p.Type != socketio.PacketConnect {
		return
	}
	var auth struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(p.Data, &auth)
	if s.Token != "" && auth.Token != s.Token {
		_ = c.write(`44{"message":"unauthorized"}`)
		return
	}
	ack, _ := json.Marshal(map[string]string{"sid": sid})
	if c.write("40"+string(ack)) != nil {
		return
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.dials++
	s.mu.Unlock()

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if len(frame) < 2 || frame[0] != '4' {
			continue
		}
		p, err := socketio.DecodePacket(frame[1:])
		if err != nil {
			continue
		}
		if p.Type == socketio.PacketDisconnect {
			return
		}
		if ev, err := socketio.EventFromPacket(p); err == nil {
			s.received <- ev
		}
	}
}

// Ping sends an Engine.IO ping to every client.
func (s *Server) Ping() {
	for _, c := range s.snapshot() {
		_ = c.write("2")
	}
}
