package chat

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry keeps at most one open session per room.
type Registry struct {
	cfg     Config
	onEvent func(Event)

	opening  singleflight.Group
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. onEvent, if set, receives every event of
// every session it opens.
func NewRegistry(cfg Config, onEvent func(Event)) *Registry {
	return &Registry{cfg: cfg, onEvent: onEvent, sessions: make(map[string]*Session)}
}

// Open returns the session for the room described by p, opening it if needed.
// Concurrent opens of one room share a single history fetch, and the registry
// stays usable for other rooms while it runs.
func (r *Registry) Open(ctx context.Context, p Params) (*Session, error) {
	if p.Kind == "" {
		p.Kind = KindDM
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	roomID := p.RoomID()
	if s, ok := r.Get(roomID); ok {
		return s, nil
	}
	v, err, _ := r.opening.Do(roomID, func() (any, error) {
		if s, ok := r.Get(roomID); ok {
			return s, nil
		}
		s, err := Open(ctx, r.cfg, p)
		if err != nil {
			return nil, err
		}
		if r.onEvent != nil {
			s.Subscribe(r.onEvent)
		}
		r.mu.Lock()
		r.sessions[roomID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get looks up an open session.
func (r *Registry) Get(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Close closes and forgets a session. It reports whether one was open.
func (r *Registry) Close(roomID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[roomID]
	delete(r.sessions, roomID)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// RoomIDs lists the open rooms in sorted order.
func (r *Registry) RoomIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
