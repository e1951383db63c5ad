package models

import "time"

// Socket event names exchanged with the realtime server.
const (
	EventJoinRoom                 = "join_room"
	EventLeaveRoom                = "leave_room"
	EventJoinBusinessRoom         = "join_business_room"
	EventLeaveBusinessRoom        = "leave_business_room"
	EventSendMessage              = "send_message"
	EventReceiveMessage           = "receive_message"
	EventSendReaction             = "sendReaction"
	EventMessageReaction          = "messageReaction"
	EventRemoveReaction           = "removeReaction"
	EventMessageReactionRemoved   = "messageReactionRemoved"
	EventTyping                   = "typing"
	EventUserTyping               = "userTyping"
	EventMarkMessageRead          = "mark_message_read"
	EventNewUnreadMessage         = "newUnreadMessage"
	EventNewUnreadBusinessMessage = "new_unread_business_message"
	EventNewBusiness              = "new_business"
	EventNewReview                = "new_review"
	EventBusinessHoursUpdated     = "businessHoursUpdated"
	EventUpdateBusiness           = "update_business"
	EventNewEvent                 = "new-event"
	EventEventUpdated             = "event-updated"
	EventEventDeleted             = "event-deleted"
	EventNewBusinessEvent         = "newBusinessEvent"
	EventBusinessEventDeleted     = "businessEventDeleted"
	EventReceiveComment           = "receive-comment"
	EventCommentDeleted           = "commentDeleted"
	EventPostDeleted              = "postDeleted"
)

// UnreadEvent is pushed when a message lands in a room the user belongs to.
type UnreadEvent struct {
	RoomID           string           `json:"room_id"`
	SenderID         ID               `json:"sender_id,omitempty"`
	Preview          string           `json:"last_message_preview,omitempty"`
	Text             string           `json:"text,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	ConversationType ConversationType `json:"conversation_type,omitempty"`
	ProductID        ID               `json:"product_id,omitempty"`
	BusinessID       ID               `json:"business_id,omitempty"`
}

// PreviewText prefers the explicit preview and falls back to the message text.
func (e UnreadEvent) PreviewText() string {
	if e.Preview != "" {
		return e.Preview
	}
	return e.Text
}

// MarkReadRequest is emitted when a conversation is opened.
type MarkReadRequest struct {
	RoomID string `json:"room_id"`
	UserID ID     `json:"user_id"`
}

// TypingEvent is both the outgoing typing emit and the incoming userTyping payload.
type TypingEvent struct {
	RoomID   string `json:"roomId"`
	UserID   ID     `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ReactionEvent carries a reaction add or remove on a message.
type ReactionEvent struct {
	MessageID ID     `json:"message_id"`
	RoomID    string `json:"room_id"`
	UserID    ID     `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// RoomRequest is the payload of join/leave emits.
type RoomRequest struct {
	RoomID     string `json:"room_id"`
	UserID     ID     `json:"user_id,omitempty"`
	BusinessID ID     `json:"business_id,omitempty"`
}

// DeletedEvent is the payload of commentDeleted, postDeleted and event-deleted.
type DeletedEvent struct {
	ID         ID `json:"id"`
	PostID     ID `json:"post_id,omitempty"`
	BusinessID ID `json:"business_id,omitempty"`
}
