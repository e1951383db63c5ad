package chat

import (
	"context"

	"hoodlink/internal/models"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// ToggleReaction adds emoji from the current user, or removes it if already
// present, and emits the matching event. The local change is reverted if the
// emit fails. It reports whether the reaction is now present.
func (s *Session) ToggleReaction(ctx context.Context, messageID models.ID, emoji string) (bool, error) {
	if emoji == "" {
		return false, models.NewValidationError("emoji is required")
	}
	self := s.params.SelfID

	s.mu.Lock()
	idx := s.indexByID(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return false, models.ErrUnknownMessage
	}
	added := s.messages[idx].AddReaction(self, emoji)
	if !added {
		s.messages[idx].RemoveReaction(self, emoji)
	}
	s.mu.Unlock()

	event := models.EventSendReaction
	if !added {
		event = models.EventRemoveReaction
	}
	payload := models.ReactionEvent{MessageID: messageID, RoomID: s.roomID, UserID: self, Emoji: emoji}
	if err := s.rt.Emit(event, payload); err != nil {
		s.mu.Lock()
		if idx := s.indexByID(messageID); idx >= 0 {
			if added {
				s.messages[idx].RemoveReaction(self, emoji)
			} else {
				s.messages[idx].AddReaction(self, emoji)
			}
		}
		s.mu.Unlock()
		s.log.LogError(ctx, event, s.roomID, err)
		return !added, err
	}

	s.notifyReaction(messageID)
	return added, nil
}

// onReaction applies reaction echoes as set operations, so echoes of the
// user's own optimistic toggles are no-ops.
func (s *Session) onReaction(add bool) realtime.Handler {
	return func(ctx context.Context, ev socketio.Event) {
		var r models.ReactionEvent
		if err := ev.Decode(&r); err != nil {
			s.log.LogError(ctx, ev.Name, s.roomID, err)
			return
		}
		if r.RoomID != "" && r.RoomID != s.roomID {
			return
		}

		s.mu.Lock()
		idx := s.indexByID(r.MessageID)
		changed := false
		if idx >= 0 {
			if add {
				changed = s.messages[idx].AddReaction(r.UserID, r.Emoji)
			} else {
				changed = s.messages[idx].RemoveReaction(r.UserID, r.Emoji)
			}
		}
		s.mu.Unlock()

		if changed {
			s.notifyReaction(r.MessageID)
		}
	}
}

func (s *Session) notifyReaction(messageID models.ID) {
	s.mu.Lock()
	idx := s.indexByID(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	m := s.messages[idx].Clone()
	s.mu.Unlock()
	s.notify(Event{Kind: EventReaction, Message: &m})
}
