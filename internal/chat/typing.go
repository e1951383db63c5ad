package chat

import (
	"context"
	"slices"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/socketio"
)

// NotifyTyping reports a keystroke. The first keystroke of a burst emits
// typing; after the debounce period without keystrokes the stop is emitted.
func (s *Session) NotifyTyping(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	start := !s.typingActive
	s.typingActive = true
	s.typingGen++
	gen := s.typingGen
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.debounce, func() { s.typingExpired(gen) })
	s.mu.Unlock()

	if !start {
		return nil
	}
	if err := s.emitTyping(ctx, true); err != nil {
		s.mu.Lock()
		if s.typingGen == gen {
			s.stopTypingLocked()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) typingExpired(gen uint64) {
	s.mu.Lock()
	if s.typingGen != gen || !s.typingActive {
		s.mu.Unlock()
		return
	}
	s.typingActive = false
	s.typingTimer = nil
	s.mu.Unlock()

	_ = s.emitTyping(context.Background(), false)
}

// stopTypingLocked ends the current burst and reports whether one was active.
func (s *Session) stopTypingLocked() bool {
	was := s.typingActive
	s.typingActive = false
	s.typingGen++
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	return was
}

func (s *Session) emitTyping(ctx context.Context, typing bool) error {
	err := s.rt.Emit(models.EventTyping, models.TypingEvent{RoomID: s.roomID, UserID: s.params.SelfID, IsTyping: typing})
	if err != nil {
		s.log.LogError(ctx, models.EventTyping, s.roomID, err)
	}
	return err
}

// Typing returns the ids of the other participants currently typing, in the
// order they started.
func (s *Session) Typing() []models.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.typing)
}

func (s *Session) onTyping(ctx context.Context, ev socketio.Event) {
	var t models.TypingEvent
	if err := ev.Decode(&t); err != nil {
		s.log.LogError(ctx, ev.Name, s.roomID, err)
		return
	}
	if t.RoomID != s.roomID || t.UserID.Empty() || t.UserID == s.params.SelfID {
		return
	}

	s.mu.Lock()
	idx := slices.Index(s.typing, t.UserID)
	changed := false
	switch {
	case t.IsTyping && idx < 0:
		s.typing = append(s.typing, t.UserID)
		changed = true
	case !t.IsTyping && idx >= 0:
		s.typing = slices.Delete(s.typing, idx, idx+1)
		changed = true
	}
	typing := slices.Clone(s.typing)
	s.mu.Unlock()

	if changed {
		s.notify(Event{Kind: EventTyping, Typing: typing})
	}
}
