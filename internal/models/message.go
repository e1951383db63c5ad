package models

import (
	"strings"
	"time"
)

// MediaType classifies an attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// MediaTypeFor maps a MIME content type onto a MediaType.
func MediaTypeFor(contentType string) MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo
	default:
		return MediaOther
	}
}

// Media is an uploaded attachment referenced by a message or post.
type Media struct {
	URL  string    `json:"media_url"`
	Type MediaType `json:"media_type"`
}

// Reaction is one user's emoji on a message.
type Reaction struct {
	UserID ID     `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// Message is a chat message. ClientMessageID is set by the sender and echoed
// back by the server so the optimistic copy can be reconciled.
type Message struct {
	MessageID        ID         `json:"message_id,omitempty"`
	ClientMessageID  string     `json:"client_message_id,omitempty"`
	RoomID           string     `json:"room_id"`
	SenderID         ID         `json:"sender_id"`
	SenderType       string     `json:"sender_type,omitempty"`
	RecipientID      ID         `json:"recipient_id,omitempty"`
	RecipientType    string     `json:"recipient_type,omitempty"`
	ProductID        ID         `json:"product_id,omitempty"`
	BusinessID       ID         `json:"business_id,omitempty"`
	Text             string     `json:"text"`
	Media            []Media    `json:"media,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Reactions        []Reaction `json:"reactions,omitempty"`
	ReplyToMessageID ID         `json:"replyToMessageId,omitempty"`
	Pending          bool       `json:"pending,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (m Message) Clone() Message {
	out := m
	if m.Media != nil {
		out.Media = append([]Media(nil), m.Media...)
	}
	if m.Reactions != nil {
		out.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	return out
}

// Preview is the inbox preview text for the message.
func (m Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if len(m.Media) > 0 {
		return "[" + string(m.Media[0].Type) + "]"
	}
	return ""
}

// HasReaction reports whether userID already placed emoji.
func (m *Message) HasReaction(userID ID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// AddReaction adds the (user, emoji) pair once. It returns false if it was already present.
func (m *Message) AddReaction(userID ID, emoji string) bool {
	if m.HasReaction(userID, emoji) {
		return false
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji})
	return true
}

// RemoveReaction drops the (user, emoji) pair. It returns false if it was absent.
func (m *Message) RemoveReaction(userID ID, emoji string) bool {
	for i, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}
