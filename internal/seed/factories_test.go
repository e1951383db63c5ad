package seed

import (
	"testing"

	"hoodlink/internal/models"
	"hoodlink/internal/rooms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Deterministic(t *testing.T) {
	a := NewFactory(7).Conversations("5", 3)
	b := NewFactory(7).Conversations("5", 3)
	assert.Equal(t, a, b)
}

func TestFactory_ConversationRoomInvolvesSelf(t *testing.T) {
	f := NewFactory(1)
	c := f.Conversation("5")
	assert.True(t, rooms.Involves(c.RoomID, rooms.User("5")))
	assert.True(t, rooms.Involves(c.RoomID, rooms.User(c.ParticipantID)))
	assert.False(t, c.LastMessageTime.After(f.Now()))
}

func TestFactory_Overrides(t *testing.T) {
	f := NewFactory(1)
	c := f.Conversation("5", func(c *models.Conversation) { c.UnreadCount = 9 })
	assert.Equal(t, 9, c.UnreadCount)

	m := f.Message(c.RoomID, "5")
	require.False(t, m.MessageID.Empty())
	assert.NotEqual(t, m.MessageID, f.Message(c.RoomID, "5").MessageID)
}
