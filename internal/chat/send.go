package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"
	"hoodlink/internal/rooms"

	"github.com/google/uuid"
)

// Draft is a message about to be sent.
type Draft struct {
	Text    string
	Uploads []api.Upload
	ReplyTo models.ID
}

func (s *Session) compose(d Draft, media []models.Media) models.Message {
	p := s.params
	msg := models.Message{
		ClientMessageID:  uuid.NewString(),
		RoomID:           s.roomID,
		SenderID:         p.SelfID,
		SenderType:       p.SelfType,
		RecipientID:      p.PeerID,
		RecipientType:    p.PeerType,
		ProductID:        p.ProductID,
		Text:             d.Text,
		Media:            media,
		CreatedAt:        time.Now().UTC(),
		ReplyToMessageID: d.ReplyTo,
		Pending:          true,
	}
	if msg.SenderType == "" {
		msg.SenderType = rooms.TypeUser
	}
	if msg.RecipientType == "" {
		msg.RecipientType = rooms.TypeUser
	}
	if p.Kind == KindBusiness {
		msg.BusinessID = p.BusinessID
	}
	return msg
}

// Send uploads any attachments one at a time, appends the message as pending
// and delivers it. Text-only messages go over the socket; messages with media
// go through the REST send endpoint. A failed upload aborts the send before
// anything is appended. The pending entry is replaced when the server copy
// arrives.
func (s *Session) Send(ctx context.Context, d Draft) (models.Message, error) {
	if strings.TrimSpace(d.Text) == "" && len(d.Uploads) == 0 {
		return models.Message{}, models.NewValidationError("message needs text or media")
	}

	media := make([]models.Media, 0, len(d.Uploads))
	for i, up := range d.Uploads {
		m, err := s.api.UploadMessageMedia(ctx, up)
		if err != nil {
			s.log.LogError(ctx, "upload_media", s.roomID, err)
			return models.Message{}, fmt.Errorf("attachment %d of %d: %w", i+1, len(d.Uploads), err)
		}
		media = append(media, m)
	}

	msg := s.compose(d, media)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Message{}, models.NewValidationError("chat session is closed")
	}
	s.messages = append(s.messages, msg)
	wasTyping := s.stopTypingLocked()
	s.mu.Unlock()
	s.notify(Event{Kind: EventSending, Message: &msg})
	if wasTyping {
		s.emitTyping(ctx, false)
	}

	wire := msg
	wire.Pending = false

	if len(media) == 0 {
		if err := s.rt.Emit(models.EventSendMessage, wire); err != nil {
			s.dropPending(msg.ClientMessageID)
			s.log.LogError(ctx, models.EventSendMessage, s.roomID, err)
			return models.Message{}, err
		}
		return msg, nil
	}

	saved, err := s.api.SendMessage(ctx, wire)
	if err != nil {
		s.dropPending(msg.ClientMessageID)
		s.log.LogError(ctx, "send_message_rest", s.roomID, err)
		return models.Message{}, err
	}
	out := *saved
	if out.ClientMessageID == "" {
		out.ClientMessageID = msg.ClientMessageID
	}
	if out.RoomID == "" {
		out.RoomID = s.roomID
	}
	if out.MessageID.Empty() {
		return msg, nil
	}
	s.applyIncoming(ctx, out)
	return out, nil
}

func (s *Session) dropPending(clientID string) {
	s.mu.Lock()
	idx := s.indexByClientID(clientID)
	if idx >= 0 && s.messages[idx].Pending {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
	s.mu.Unlock()
	s.notify(Event{Kind: EventFailed, Message: &models.Message{ClientMessageID: clientID, RoomID: s.roomID}})
}

// applyIncoming merges a server copy of a message. A pending entry with the
// same client id is replaced in place. When the copy carries no client id,
// the oldest pending entry from the same sender with the same text and media
// count is taken as its origin. Copies of messages already in the list are
// dropped.
func (s *Session) applyIncoming(ctx context.Context, msg models.Message) {
	msg.Pending = false

	s.mu.Lock()
	if !s.dedupe {
		s.messages = append(s.messages, msg)
		s.mu.Unlock()
		s.archiveUpsert(ctx, msg)
		s.notify(Event{Kind: EventReceived, Message: &msg})
		return
	}

	idx := s.indexByClientID(msg.ClientMessageID)
	if known := s.indexByID(msg.MessageID); known >= 0 && known != idx {
		if idx >= 0 && s.messages[idx].Pending {
			s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
		}
		s.mu.Unlock()
		observability.EchoDuplicatesDropped.Inc()
		return
	}
	if idx < 0 && msg.ClientMessageID == "" {
		idx = s.indexPendingMatch(msg)
	}
	if idx >= 0 {
		if !s.messages[idx].Pending {
			s.mu.Unlock()
			observability.EchoDuplicatesDropped.Inc()
			return
		}
		if msg.ClientMessageID == "" {
			msg.ClientMessageID = s.messages[idx].ClientMessageID
		}
		s.messages[idx] = msg
		s.mu.Unlock()
		observability.EchoDuplicatesDropped.Inc()
		s.archiveUpsert(ctx, msg)
		s.notify(Event{Kind: EventReconciled, Message: &msg})
		return
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.archiveUpsert(ctx, msg)
	s.notify(Event{Kind: EventReceived, Message: &msg})
}

func (s *Session) indexPendingMatch(msg models.Message) int {
	for i := range s.messages {
		m := &s.messages[i]
		if m.Pending && m.SenderID == msg.SenderID && m.Text == msg.Text && len(m.Media) == len(msg.Media) {
			return i
		}
	}
	return -1
}

// Edit replaces the text and media of one of the session's messages.
func (s *Session) Edit(ctx context.Context, messageID models.ID, text string, media []models.Media) (models.Message, error) {
	s.mu.Lock()
	known := s.indexByID(messageID) >= 0
	s.mu.Unlock()
	if !known {
		return models.Message{}, models.ErrUnknownMessage
	}

	edited, err := s.api.EditMessage(ctx, messageID, s.roomID, text, media)
	if err != nil {
		s.log.LogError(ctx, "edit_message", s.roomID, err)
		return models.Message{}, err
	}

	s.mu.Lock()
	idx := s.indexByID(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return models.Message{}, models.ErrUnknownMessage
	}
	old := s.messages[idx]
	next := old
	if edited != nil && !edited.MessageID.Empty() {
		next = *edited
		if next.RoomID == "" {
			next.RoomID = old.RoomID
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = old.CreatedAt
		}
		if next.Reactions == nil {
			next.Reactions = old.Reactions
		}
		if next.ClientMessageID == "" {
			next.ClientMessageID = old.ClientMessageID
		}
	} else {
		next.Text = text
		if media != nil {
			next.Media = media
		}
	}
	s.messages[idx] = next
	out := next.Clone()
	s.mu.Unlock()

	s.archiveUpsert(ctx, out)
	s.notify(Event{Kind: EventEdited, Message: &out})
	return out, nil
}

// Delete removes exactly the message with messageID once the server accepted
// the delete. The order of the remaining messages is unchanged.
func (s *Session) Delete(ctx context.Context, messageID models.ID) error {
	s.mu.Lock()
	known := s.indexByID(messageID) >= 0
	s.mu.Unlock()
	if !known {
		return models.ErrUnknownMessage
	}

	if err := s.api.DeleteMessage(ctx, messageID, s.roomID); err != nil {
		s.log.LogError(ctx, "delete_message", s.roomID, err)
		return err
	}

	s.mu.Lock()
	if idx := s.indexByID(messageID); idx >= 0 {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Delete(ctx, s.roomID, messageID); err != nil {
			s.log.LogError(ctx, "archive_delete", s.roomID, err)
		}
	}
	s.notify(Event{Kind: EventDeleted, Message: &models.Message{MessageID: messageID, RoomID: s.roomID}})
	return nil
}

// DeleteChat deletes the whole conversation and clears the local list.
func (s *Session) DeleteChat(ctx context.Context) error {
	if err := s.api.DeleteChat(ctx, s.roomID); err != nil {
		s.log.LogError(ctx, "delete_chat", s.roomID, err)
		return err
	}
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.DeleteRoom(ctx, s.roomID); err != nil {
			s.log.LogError(ctx, "archive_delete_room", s.roomID, err)
		}
	}
	s.notify(Event{Kind: EventCleared})
	return nil
}
