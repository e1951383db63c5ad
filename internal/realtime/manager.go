// Package realtime owns the process-wide realtime connection. Rooms are
// reference-counted across every consumer and handlers are dispatched on a
// single goroutine in delivery order.
package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"
	"hoodlink/internal/socketio"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultLeaveGrace     = 3 * time.Second
	defaultMaxReconnect   = 30 * time.Second
	initialReconnectDelay = 500 * time.Millisecond
)

// Conn is the socket the manager drives. *socketio.Client satisfies it.
type Conn interface {
	ID() string
	Emit(event string, payload any) error
	Events() <-chan socketio.Event
	Done() <-chan struct{}
	Err() error
	Close() error
}

// DialFunc opens a new Conn.
type DialFunc func(ctx context.Context, opts socketio.Options) (Conn, error)

// Handler receives one inbound event.
type Handler func(ctx context.Context, ev socketio.Event)

// Config controls connection and room behavior.
type Config struct {
	Socket               socketio.Options
	LeaveGrace           time.Duration
	MaxReconnectInterval time.Duration
	Dial                 DialFunc
}

type roomState struct {
	room       Room
	refs       int
	joinedOn   Conn
	leaveTimer *time.Timer
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Subscriber is the part of Manager that room consumers depend on.
type Subscriber interface {
	Join(room Room) (release func())
	On(event string, h Handler) (unsubscribe func())
	OnConnect(fn func(ctx context.Context)) (unsubscribe func())
	Emit(event string, payload any) error
}

var _ Subscriber = (*Manager)(nil)

// Manager owns exactly one socket connection.
type Manager struct {
	socket      socketio.Options
	dial        DialFunc
	leaveGrace  time.Duration
	maxInterval time.Duration
	log         *observability.SyncLogger

	// roomMu serializes room join and leave emits so the server sees them
	// in the order the reference counts changed.
	roomMu sync.Mutex

	mu            sync.RWMutex
	conn          Conn
	connectedCh   chan struct{}
	rooms         map[string]*roomState
	handlers      map[string][]handlerEntry
	onConnect     []handlerEntry
	nextHandlerID uint64
	reconnects    int
	dispatched    uint64
	connectedAt   time.Time

	stopOnce sync.Once
}

// NewManager creates a manager. Call Run to connect.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		socket:      cfg.Socket,
		dial:        cfg.Dial,
		leaveGrace:  defaultLeaveGrace,
		maxInterval: defaultMaxReconnect,
		log:         observability.NewSyncLogger("realtime"),
		connectedCh: make(chan struct{}),
		rooms:       make(map[string]*roomState),
		handlers:    make(map[string][]handlerEntry),
	}
	if cfg.LeaveGrace > 0 {
		m.leaveGrace = cfg.LeaveGrace
	}
	if cfg.LeaveGrace < 0 {
		m.leaveGrace = 0
	}
	if cfg.MaxReconnectInterval > 0 {
		m.maxInterval = cfg.MaxReconnectInterval
	}
	if m.dial == nil {
		m.dial = func(ctx context.Context, opts socketio.Options) (Conn, error) {
			return socketio.Dial(ctx, opts)
		}
	}
	return m
}

// Join subscribes to room. The join is emitted when the first reference is
// taken; the leave is emitted after the grace period once the last reference
// is released, unless the room is joined again in between. The returned
// release func is safe to call more than once.
func (m *Manager) Join(room Room) (release func()) {
	m.mu.Lock()
	st, ok := m.rooms[room.ID]
	if !ok {
		st = &roomState{room: room}
		m.rooms[room.ID] = st
		observability.RoomSubscriptions.WithLabelValues(room.Kind).Inc()
	}
	if st.leaveTimer != nil {
		st.leaveTimer.Stop()
		st.leaveTimer = nil
	}
	st.refs++
	refs := st.refs
	m.mu.Unlock()

	m.log.LogRoom(context.Background(), "ref", room.ID, refs)
	m.syncJoin(room.ID)

	var once sync.Once
	return func() {
		once.Do(func() { m.release(room.ID) })
	}
}

// syncJoin emits the join for roomID when the room is still wanted and the
// live connection has not seen it yet.
func (m *Manager) syncJoin(roomID string) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	m.mu.RLock()
	st := m.rooms[roomID]
	conn := m.conn
	need := st != nil && conn != nil && st.joinedOn != conn &&
		(st.refs > 0 || st.leaveTimer != nil)
	m.mu.RUnlock()
	if !need {
		return
	}

	if err := conn.Emit(st.room.Join, st.room.Payload); err != nil {
		m.log.LogError(context.Background(), st.room.Join, roomID, err)
		return
	}
	m.mu.Lock()
	st.joinedOn = conn
	refs := st.refs
	m.mu.Unlock()
	m.log.LogRoom(context.Background(), "join", roomID, refs)
}

func (m *Manager) release(roomID string) {
	m.mu.Lock()
	st := m.rooms[roomID]
	if st == nil || st.refs == 0 {
		m.mu.Unlock()
		return
	}
	st.refs--
	if st.refs > 0 {
		m.mu.Unlock()
		return
	}
	if m.leaveGrace <= 0 {
		m.mu.Unlock()
		m.finalizeLeave(roomID, st)
		return
	}
	st.leaveTimer = time.AfterFunc(m.leaveGrace, func() {
		m.finalizeLeave(roomID, st)
	})
	m.mu.Unlock()
}

func (m *Manager) finalizeLeave(roomID string, st *roomState) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	m.mu.Lock()
	if m.rooms[roomID] != st || st.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, roomID)
	st.leaveTimer = nil
	conn := m.conn
	joined := conn != nil && st.joinedOn == conn
	st.joinedOn = nil
	m.mu.Unlock()

	observability.RoomSubscriptions.WithLabelValues(st.room.Kind).Dec()
	if joined {
		if err := conn.Emit(st.room.Leave, st.room.Payload); err != nil {
			m.log.LogError(context.Background(), st.room.Leave, roomID, err)
			return
		}
	}
	m.log.LogRoom(context.Background(), "leave", roomID, 0)
}

// On registers a handler for event and returns its unsubscribe func.
func (m *Manager) On(event string, h Handler) (unsubscribe func()) {
	m.mu.Lock()
	m.nextHandlerID++
	id := m.nextHandlerID
	m.handlers[event] = append(m.handlers[event], handlerEntry{id: id, fn: h})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.handlers[event] = removeEntry(m.handlers[event], id)
			if len(m.handlers[event]) == 0 {
				delete(m.handlers, event)
			}
			m.mu.Unlock()
		})
	}
}

// OnConnect registers fn to run after every successful (re)connect.
func (m *Manager) OnConnect(fn func(ctx context.Context)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextHandlerID++
	id := m.nextHandlerID
	m.onConnect = append(m.onConnect, handlerEntry{id: id, fn: func(ctx context.Context, _ socketio.Event) { fn(ctx) }})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.onConnect = removeEntry(m.onConnect, id)
			m.mu.Unlock()
		})
	}
}

func removeEntry(entries []handlerEntry, id uint64) []handlerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Emit sends an event on the live connection. It does not queue while
// disconnected.
func (m *Manager) Emit(event string, payload any) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return models.ErrNotConnected
	}
	if err := conn.Emit(event, payload); err != nil {
		if errors.Is(err, socketio.ErrClosed) {
			return models.ErrNotConnected
		}
		return err
	}
	return nil
}

// Connected reports whether a session is live.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil
}

// WaitConnected blocks until a session is live or ctx ends.
func (m *Manager) WaitConnected(ctx context.Context) error {
	m.mu.RLock()
	ch := m.connectedCh
	m.mu.RUnlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run connects and dispatches events until ctx is cancelled, reconnecting
// with capped exponential backoff. Active rooms are joined again after every
// reconnect.
func (m *Manager) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialReconnectDelay
	b.MaxInterval = m.maxInterval

	for {
		conn, err := m.dial(ctx, m.socket)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := b.NextBackOff()
			m.log.LogLifecycle(ctx, "dial_failed", map[string]interface{}{
				"error": err.Error(),
				"retry": wait.String(),
			})
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		b.Reset()
		m.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (m *Manager) serve(ctx context.Context, conn Conn) {
	m.mu.Lock()
	if !m.connectedAt.IsZero() {
		m.reconnects++
	}
	m.conn = conn
	m.connectedAt = time.Now()
	pending := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		pending = append(pending, id)
	}
	hooks := append([]handlerEntry(nil), m.onConnect...)
	close(m.connectedCh)
	m.mu.Unlock()

	m.log.LogConnect(ctx, m.socket.URL, conn.ID())
	for _, id := range pending {
		m.syncJoin(id)
	}
	for _, h := range hooks {
		go h.fn(ctx, socketio.Event{})
	}

	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				m.disconnected(ctx, conn)
				return
			}
			m.dispatch(ctx, ev)
		case <-ctx.Done():
			_ = conn.Close()
			m.disconnected(ctx, conn)
			return
		}
	}
}

func (m *Manager) disconnected(ctx context.Context, conn Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.connectedCh = make(chan struct{})
	}
	for _, st := range m.rooms {
		if st.joinedOn == conn {
			st.joinedOn = nil
		}
	}
	m.mu.Unlock()

	reason := "closed"
	if err := conn.Err(); err != nil {
		reason = err.Error()
	}
	m.log.LogDisconnect(ctx, reason)
}

func (m *Manager) dispatch(ctx context.Context, ev socketio.Event) {
	m.mu.Lock()
	entries := append([]handlerEntry(nil), m.handlers[ev.Name]...)
	m.dispatched++
	m.mu.Unlock()

	observability.SocketEventsTotal.WithLabelValues(ev.Name).Inc()
	for _, e := range entries {
		e.fn(ctx, ev)
	}
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	Connected      bool           `json:"connected"`
	SessionID      string         `json:"session_id,omitempty"`
	ConnectedSince time.Time      `json:"connected_since,omitzero"`
	Reconnects     int            `json:"reconnects"`
	Dispatched     uint64         `json:"events_dispatched"`
	Rooms          map[string]int `json:"rooms"`
	Events         []string       `json:"events"`
}

// Stats reports connection state, room reference counts and subscribed events.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		Connected:  m.conn != nil,
		Reconnects: m.reconnects,
		Dispatched: m.dispatched,
		Rooms:      make(map[string]int, len(m.rooms)),
		Events:     make([]string, 0, len(m.handlers)),
	}
	if m.conn != nil {
		s.SessionID = m.conn.ID()
		s.ConnectedSince = m.connectedAt
	}
	for id, st := range m.rooms {
		s.Rooms[id] = st.refs
	}
	for name := range m.handlers {
		s.Events = append(s.Events, name)
	}
	sort.Strings(s.Events)
	return s
}

// Stop cancels pending leave timers. Run must be stopped through its context.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		for _, st := range m.rooms {
			if st.leaveTimer != nil {
				st.leaveTimer.Stop()
				st.leaveTimer = nil
			}
		}
		m.mu.Unlock()
	})
}
