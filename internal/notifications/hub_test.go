package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hoodlink/internal/chat"
	"hoodlink/internal/inbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case raw := <-c.Send:
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return Frame{}
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	c, err := hub.Register(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Count())

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.Count())

	_, ok := <-c.Send
	assert.False(t, ok, "send channel is closed on unregister")
	assert.False(t, c.TrySend([]byte("{}")))
}

func TestHub_ClientLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxClients; i++ {
		_, err := hub.Register(nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(nil)
	assert.ErrorIs(t, err, ErrTooManyClients)
	require.NoError(t, hub.Shutdown(context.Background()))
}

func TestHub_PublishInboxReachesEveryone(t *testing.T) {
	hub := NewHub()
	a, _ := hub.Register(nil)
	b, _ := hub.Register(nil)
	b.Watch("room-1")

	hub.PublishInbox(inbox.Change{Kind: inbox.ChangeUnread, RoomID: "room-9"})

	for _, c := range []*Client{a, b} {
		f := readFrame(t, c)
		assert.Equal(t, FrameInbox, f.Type)
		assert.Equal(t, "room-9", f.RoomID)
	}
}

func TestHub_PublishChatHonoursWatch(t *testing.T) {
	hub := NewHub()
	all, _ := hub.Register(nil)
	one, _ := hub.Register(nil)
	one.handleControl([]byte(`{"action":"watch","room_id":"room-1"}`))

	hub.PublishChat(chat.Event{Kind: chat.EventReceived, RoomID: "room-2"})
	hub.PublishChat(chat.Event{Kind: chat.EventReceived, RoomID: "room-1"})

	assert.Equal(t, "room-2", readFrame(t, all).RoomID)
	assert.Equal(t, "room-1", readFrame(t, all).RoomID)
	assert.Equal(t, "room-1", readFrame(t, one).RoomID)
	assert.Empty(t, one.Send)

	one.handleControl([]byte(`{"action":"unwatch","room_id":"room-1"}`))
	assert.True(t, one.Wants("room-2"))
	one.handleControl([]byte(`not json`))
	assert.True(t, one.Wants("room-3"))
}

func TestHub_PublishBusiness(t *testing.T) {
	hub := NewHub()
	c, _ := hub.Register(nil)
	c.Watch("room-1")

	hub.PublishBusiness("77", "new_review")

	f := readFrame(t, c)
	assert.Equal(t, FrameBusiness, f.Type)
	assert.Equal(t, map[string]any{"business_id": "77", "event": "new_review"}, f.Payload)
}

func TestClient_TrySendBackpressure(t *testing.T) {
	hub := NewHub()
	c, _ := hub.Register(nil)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte(`{}`)))
	}
	assert.False(t, c.TrySend([]byte(`{}`)))
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	c, _ := hub.Register(nil)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())
	_, ok := <-c.Send
	assert.False(t, ok)

	_, err := hub.Register(nil)
	assert.Error(t, err)
}
