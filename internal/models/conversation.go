package models

import "time"

// ConversationType is the kind of chat a conversation belongs to.
type ConversationType string

const (
	ConversationDM       ConversationType = "dm"
	ConversationProduct  ConversationType = "product"
	ConversationBusiness ConversationType = "business"
)

// Conversation is the inbox entry for one room.
type Conversation struct {
	RoomID             string           `json:"room_id"`
	ParticipantID      ID               `json:"participant_id,omitempty"`
	ParticipantName    string           `json:"participant_name,omitempty"`
	ParticipantAvatar  string           `json:"participant_avatar,omitempty"`
	ParticipantType    string           `json:"participant_type,omitempty"`
	LastMessageTime    time.Time        `json:"last_message_time"`
	LastMessagePreview string           `json:"last_message_preview,omitempty"`
	UnreadCount        int              `json:"unread_count"`
	Type               ConversationType `json:"conversation_type,omitempty"`
	ProductID          ID               `json:"product_id,omitempty"`
	BusinessID         ID               `json:"business_id,omitempty"`
}

// Touch records activity on the conversation. Older timestamps never move
// last_message_time backwards.
func (c *Conversation) Touch(at time.Time, preview string) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.After(c.LastMessageTime) {
		c.LastMessageTime = at
	}
	if preview != "" {
		c.LastMessagePreview = preview
	}
}
