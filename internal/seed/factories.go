// Package seed builds realistic view-model fixtures for tests and the CLI
// demo output. Nothing here talks to the network.
package seed

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/rooms"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds view-models with fake but plausible content.
type Factory struct {
	faker  *gofakeit.Faker
	now    time.Time
	nextID atomic.Int64
}

// NewFactory creates a deterministic factory for seed.
func NewFactory(seed int64) *Factory {
	f := &Factory{
		faker: gofakeit.New(seed),
		now:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.nextID.Store(1000)
	return f
}

// ID returns the next synthetic numeric id.
func (f *Factory) ID() models.ID {
	return models.ID(strconv.FormatInt(f.nextID.Add(1), 10))
}

// Now is the factory's fixed reference time.
func (f *Factory) Now() time.Time { return f.now }

func (f *Factory) recent() time.Time {
	return f.now.Add(-time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
}

// User builds a user profile.
func (f *Factory) User(overrides ...func(*models.User)) models.User {
	u := models.User{
		ID:     f.ID(),
		Name:   f.faker.Name(),
		Avatar: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Type:   rooms.TypeUser,
	}
	for _, o := range overrides {
		o(&u)
	}
	return u
}

// Conversation builds a direct conversation between self and a fresh peer.
func (f *Factory) Conversation(self models.ID, overrides ...func(*models.Conversation)) models.Conversation {
	peer := f.User()
	c := models.Conversation{
		RoomID:             rooms.DirectRoomID(self, peer.ID),
		ParticipantID:      peer.ID,
		ParticipantName:    peer.Name,
		ParticipantAvatar:  peer.Avatar,
		ParticipantType:    rooms.TypeUser,
		LastMessageTime:    f.recent(),
		LastMessagePreview: f.faker.Sentence(6),
		UnreadCount:        f.faker.Number(0, 4),
		Type:               models.ConversationDM,
	}
	for _, o := range overrides {
		o(&c)
	}
	return c
}

// Conversations builds n conversations for self.
func (f *Factory) Conversations(self models.ID, n int) []models.Conversation {
	out := make([]models.Conversation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.Conversation(self))
	}
	return out
}

// Message builds a text message in roomID sent by sender.
func (f *Factory) Message(roomID string, sender models.ID, overrides ...func(*models.Message)) models.Message {
	m := models.Message{
		MessageID: f.ID(),
		RoomID:    roomID,
		SenderID:  sender,
		Text:      f.faker.Sentence(8),
		CreatedAt: f.recent(),
	}
	for _, o := range overrides {
		o(&m)
	}
	return m
}

// Post builds a feed post.
func (f *Factory) Post(overrides ...func(*models.Post)) models.Post {
	author := f.User()
	p := models.Post{
		ID:         f.ID(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Content:    f.faker.Paragraph(1, 2, 8, "\n"),
		CreatedAt:  f.recent(),
	}
	for _, o := range overrides {
		o(&p)
	}
	return p
}

// Comment builds a top-level comment on postID.
func (f *Factory) Comment(postID models.ID, overrides ...func(*models.Comment)) models.Comment {
	c := models.Comment{
		ID:        f.ID(),
		PostID:    postID,
		UserID:    f.ID(),
		Content:   f.faker.Sentence(10),
		LikeCount: f.faker.Number(0, 20),
		CreatedAt: f.recent(),
	}
	for _, o := range overrides {
		o(&c)
	}
	return c
}

// Business builds a business profile owned by ownerID.
func (f *Factory) Business(ownerID models.ID, overrides ...func(*models.Business)) models.Business {
	b := models.Business{
		ID:          f.ID(),
		OwnerID:     ownerID,
		Name:        f.faker.Company(),
		Description: f.faker.Sentence(12),
		Category:    f.faker.RandomString([]string{"food", "services", "retail", "health"}),
		Address:     f.faker.Street(),
		Hours: []models.BusinessHours{
			{Day: "monday", Open: "09:00", Close: "17:00"},
			{Day: "sunday", Closed: true},
		},
	}
	for _, o := range overrides {
		o(&b)
	}
	return b
}

// Review builds a review of businessID.
func (f *Factory) Review(businessID models.ID) models.Review {
	return models.Review{
		ID:         f.ID(),
		BusinessID: businessID,
		UserID:     f.ID(),
		Rating:     f.faker.Number(1, 5),
		Text:       f.faker.Sentence(9),
		CreatedAt:  f.recent(),
	}
}

// Event builds an upcoming event hosted by businessID.
func (f *Factory) Event(businessID models.ID) models.BusinessEvent {
	start := f.now.Add(time.Duration(f.faker.Number(1, 30)) * 24 * time.Hour)
	return models.BusinessEvent{
		ID:          f.ID(),
		BusinessID:  businessID,
		Title:       f.faker.Sentence(4),
		Description: f.faker.Sentence(10),
		StartsAt:    start,
		EndsAt:      start.Add(2 * time.Hour),
	}
}
