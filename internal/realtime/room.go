package realtime

import (
	"hoodlink/internal/models"
	"hoodlink/internal/rooms"
)

// Room kinds, used as the metrics label.
const (
	KindPersonal     = "personal"
	KindConversation = "conversation"
	KindBusiness     = "business"
	KindPost         = "post"
)

// Room is a subscription target: its id plus the events that join and leave it.
type Room struct {
	ID      string
	Kind    string
	Join    string
	Leave   string
	Payload any
}

func socketRoom(id, kind string, payload any) Room {
	return Room{ID: id, Kind: kind, Join: models.EventJoinRoom, Leave: models.EventLeaveRoom, Payload: payload}
}

// PersonalRoom is the user's own notification room.
func PersonalRoom(userID models.ID) Room {
	id := rooms.PersonalRoom(userID)
	return socketRoom(id, KindPersonal, models.RoomRequest{RoomID: id, UserID: userID})
}

// BusinessNotificationRoom carries business-chat unread notifications for a user.
func BusinessNotificationRoom(userID models.ID) Room {
	id := rooms.BusinessNotificationRoom(userID)
	return socketRoom(id, KindPersonal, models.RoomRequest{RoomID: id, UserID: userID})
}

// ConversationRoom is a chat room joined with join_room/leave_room.
func ConversationRoom(roomID string, userID models.ID) Room {
	return socketRoom(roomID, KindConversation, models.RoomRequest{RoomID: roomID, UserID: userID})
}

// BusinessChatRoom is a business-to-user chat joined with join_business_room.
func BusinessChatRoom(roomID string, businessID, userID models.ID) Room {
	return Room{
		ID:      roomID,
		Kind:    KindConversation,
		Join:    models.EventJoinBusinessRoom,
		Leave:   models.EventLeaveBusinessRoom,
		Payload: models.RoomRequest{RoomID: roomID, UserID: userID, BusinessID: businessID},
	}
}

// BusinessPageRoom receives profile, review, hours and event updates for a business.
func BusinessPageRoom(businessID models.ID) Room {
	id := rooms.BusinessRoom(businessID)
	return Room{
		ID:      id,
		Kind:    KindBusiness,
		Join:    models.EventJoinBusinessRoom,
		Leave:   models.EventLeaveBusinessRoom,
		Payload: models.RoomRequest{RoomID: id, BusinessID: businessID},
	}
}

// PostRoom receives comment updates for a post.
func PostRoom(postID models.ID) Room {
	id := rooms.PostRoom(postID)
	return socketRoom(id, KindPost, models.RoomRequest{RoomID: id})
}
