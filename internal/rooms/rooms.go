// Package rooms builds every realtime room identifier used by the client.
//
// Conversation rooms are derived from the two participants (and an optional
// product) so that both ends compute the same id independently. The rule:
//
//   - each participant becomes a token: the bare id for users, "business-<id>"
//     for businesses;
//   - the two tokens are ordered numerically when both are integers and
//     lexicographically otherwise;
//   - tokens are joined with "_", and "_<productID>" is appended for product chats.
package rooms

import (
	"strconv"
	"strings"

	"hoodlink/internal/models"
)

const (
	separator      = "_"
	businessPrefix = "business-"
)

// Participant types.
const (
	TypeUser     = "user"
	TypeBusiness = "business"
)

// Participant is one side of a conversation.
type Participant struct {
	Type string
	ID   models.ID
}

// User returns a user participant.
func User(id models.ID) Participant { return Participant{Type: TypeUser, ID: id} }

// Business returns a business participant.
func Business(id models.ID) Participant { return Participant{Type: TypeBusiness, ID: id} }

// Token is the participant's segment in a room id.
func (p Participant) Token() string {
	if p.Type == TypeBusiness {
		return businessPrefix + p.ID.String()
	}
	return p.ID.String()
}

// ConversationRoomID returns the room id shared by a and b. productID may be empty.
func ConversationRoomID(a, b Participant, productID models.ID) string {
	first, second := a.Token(), b.Token()
	if less(second, first) {
		first, second = second, first
	}
	id := first + separator + second
	if !productID.Empty() {
		id += separator + productID.String()
	}
	return id
}

// DirectRoomID is ConversationRoomID for two users without a product.
func DirectRoomID(a, b models.ID) string {
	return ConversationRoomID(User(a), User(b), "")
}

// ProductRoomID is ConversationRoomID for a buyer/seller pair and a listing.
func ProductRoomID(a, b, productID models.ID) string {
	return ConversationRoomID(User(a), User(b), productID)
}

// BusinessChatRoomID is the room between a business and a user.
func BusinessChatRoomID(businessID, userID models.ID) string {
	return ConversationRoomID(Business(businessID), User(userID), "")
}

// PersonalRoom is the user's private notification room.
func PersonalRoom(userID models.ID) string { return userID.String() }

// BusinessNotificationRoom receives business-chat unread notifications for a user.
func BusinessNotificationRoom(userID models.ID) string {
	return "business" + separator + userID.String()
}

// BusinessRoom receives profile, review and event updates for one business.
func BusinessRoom(businessID models.ID) string { return businessPrefix + businessID.String() }

// PostRoom receives comment updates for one post.
func PostRoom(postID models.ID) string { return "post" + separator + postID.String() }

// Parsed is a conversation room id split into its parts.
type Parsed struct {
	Participants [2]string
	ProductID    string
}

// Parse splits a conversation room id. It returns false when the id does not
// have two or three segments.
func Parse(roomID string) (Parsed, bool) {
	parts := strings.Split(roomID, separator)
	if len(parts) < 2 || len(parts) > 3 {
		return Parsed{}, false
	}
	for _, p := range parts {
		if p == "" {
			return Parsed{}, false
		}
	}
	out := Parsed{Participants: [2]string{parts[0], parts[1]}}
	if len(parts) == 3 {
		out.ProductID = parts[2]
	}
	return out, true
}

// Involves reports whether the room id has participant p as one of its two sides.
func Involves(roomID string, p Participant) bool {
	parsed, ok := Parse(roomID)
	if !ok {
		return false
	}
	tok := p.Token()
	return parsed.Participants[0] == tok || parsed.Participants[1] == tok
}

func less(a, b string) bool {
	ai, aErr := strconv.ParseUint(a, 10, 64)
	bi, bErr := strconv.ParseUint(b, 10, 64)
	if aErr == nil && bErr == nil && ai != bi {
		return ai < bi
	}
	return a < b
}
