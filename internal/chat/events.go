package chat

import "hoodlink/internal/models"

// EventKind says what changed in a session.
type EventKind string

const (
	EventLoaded     EventKind = "loaded"
	EventSending    EventKind = "sending"
	EventFailed     EventKind = "failed"
	EventReceived   EventKind = "received"
	EventReconciled EventKind = "reconciled"
	EventEdited     EventKind = "edited"
	EventDeleted    EventKind = "deleted"
	EventCleared    EventKind = "cleared"
	EventReaction   EventKind = "reaction"
	EventTyping     EventKind = "typing"
)

// Event is delivered to subscribers after the session changed.
type Event struct {
	Kind    EventKind       `json:"kind"`
	RoomID  string          `json:"room_id"`
	Message *models.Message `json:"message,omitempty"`
	Typing  []models.ID     `json:"typing,omitempty"`
}

// Subscribe registers fn for every session event. fn must not block.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(ev Event) {
	ev.RoomID = s.roomID
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
