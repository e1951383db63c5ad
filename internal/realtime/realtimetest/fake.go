// Package realtimetest provides an in-memory realtime.Subscriber for tests.
package realtimetest

import (
	"context"
	"encoding/json"
	"sync"

	"hoodlink/internal/models"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// Emitted is one recorded emit.
type Emitted struct {
	Event   string
	Payload any
}

// Fake records joins and emits and delivers events synchronously.
type Fake struct {
	mu        sync.Mutex
	connected bool
	refs      map[string]int
	joins     []realtime.Room
	leaves    []realtime.Room
	emits     []Emitted
	handlers  map[string][]*realtime.Handler
	onConnect []*func(context.Context)
}

// New returns a connected fake.
func New() *Fake {
	return &Fake{
		connected: true,
		refs:      make(map[string]int),
		handlers:  make(map[string][]*realtime.Handler),
	}
}

// SetConnected toggles whether Emit succeeds.
func (f *Fake) SetConnected(ok bool) {
	f.mu.Lock()
	f.connected = ok
	f.mu.Unlock()
}

// Join records the room and counts references without a grace period.
func (f *Fake) Join(room realtime.Room) func() {
	f.mu.Lock()
	f.refs[room.ID]++
	if f.refs[room.ID] == 1 {
		f.joins = append(f.joins, room)
	}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.refs[room.ID]--
			if f.refs[room.ID] == 0 {
				delete(f.refs, room.ID)
				f.leaves = append(f.leaves, room)
			}
		})
	}
}

func (f *Fake) On(event string, h realtime.Handler) func() {
	f.mu.Lock()
	hp := &h
	f.handlers[event] = append(f.handlers[event], hp)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.handlers[event]
		for i, p := range list {
			if p == hp {
				f.handlers[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (f *Fake) OnConnect(fn func(ctx context.Context)) func() {
	f.mu.Lock()
	fp := &fn
	f.onConnect = append(f.onConnect, fp)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, p := range f.onConnect {
			if p == fp {
				f.onConnect = append(f.onConnect[:i:i], f.onConnect[i+1:]...)
				return
			}
		}
	}
}

func (f *Fake) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return models.ErrNotConnected
	}
	f.emits = append(f.emits, Emitted{Event: event, Payload: payload})
	return nil
}

// Deliver marshals payload and runs every handler for event on the caller's goroutine.
func (f *Fake) Deliver(ctx context.Context, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	hs := append([]*realtime.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()

	ev := socketio.Event{Name: event, Args: []json.RawMessage{raw}}
	for _, h := range hs {
		(*h)(ctx, ev)
	}
}

// Connect runs the OnConnect hooks synchronously.
func (f *Fake) Connect(ctx context.Context) {
	f.mu.Lock()
	hooks := append(([]*func(context.Context))(nil), f.onConnect...)
	f.mu.Unlock()
	for _, h := range hooks {
		(*h)(ctx)
	}
}

// Emits returns the recorded emits for event, or all of them when event is empty.
func (f *Fake) Emits(event string) []Emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Emitted
	for _, e := range f.emits {
		if event == "" || e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Joined returns the rooms joined so far, in order.
func (f *Fake) Joined() []realtime.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.Room(nil), f.joins...)
}

// Left returns the rooms whose last reference was released.
func (f *Fake) Left() []realtime.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.Room(nil), f.leaves...)
}

// Refs is the current reference count of a room.
func (f *Fake) Refs(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs[roomID]
}

// Handlers is the number of handlers registered for event.
func (f *Fake) Handlers(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[event])
}

var _ realtime.Subscriber = (*Fake)(nil)
