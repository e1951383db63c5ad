package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/chat"
	"hoodlink/internal/featureflags"
	"hoodlink/internal/inbox"
	"hoodlink/internal/models"
	"hoodlink/internal/notifications"
	"hoodlink/internal/realtime"
	"hoodlink/internal/realtime/realtimetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	general, direct, business []models.Conversation
}

func (f stubFetcher) GeneralConversations(context.Context) ([]models.Conversation, error) {
	return f.general, nil
}

func (f stubFetcher) DirectConversations(context.Context) ([]models.Conversation, error) {
	return f.direct, nil
}

func (f stubFetcher) BusinessConversations(context.Context) ([]models.Conversation, error) {
	return f.business, nil
}

func (f stubFetcher) BusinessSalesConversations(context.Context, models.ID) ([]models.Conversation, error) {
	return nil, nil
}

type stubChatAPI struct{}

func (stubChatAPI) RoomMessages(context.Context, string, models.ID) ([]models.Message, error) {
	return []models.Message{{MessageID: "1", RoomID: "5_9", SenderID: "9", Text: "hi"}}, nil
}

func (stubChatAPI) SendMessage(_ context.Context, msg models.Message) (*models.Message, error) {
	msg.MessageID = "100"
	msg.Pending = false
	return &msg, nil
}

func (stubChatAPI) EditMessage(_ context.Context, id models.ID, roomID, text string, media []models.Media) (*models.Message, error) {
	return &models.Message{MessageID: id, RoomID: roomID, Text: text, Media: media}, nil
}

func (stubChatAPI) DeleteMessage(context.Context, models.ID, string) error { return nil }

func (stubChatAPI) DeleteChat(context.Context, string) error { return nil }

func (stubChatAPI) UploadMessageMedia(_ context.Context, up api.Upload) (models.Media, error) {
	return models.Media{URL: "http://api.test/" + up.Filename, Type: models.MediaImage}, nil
}

type stubStats struct{ connected bool }

func (s stubStats) Stats() realtime.Stats {
	return realtime.Stats{Connected: s.connected, Rooms: map[string]int{"personal_5": 1}}
}

type fixture struct {
	srv   *Server
	rt    *realtimetest.Fake
	inbox *inbox.Inbox
	chats *chat.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ib := inbox.New(stubFetcher{
		general: []models.Conversation{{RoomID: "5_9", UnreadCount: 2, LastMessageTime: at}},
		direct:  []models.Conversation{{RoomID: "5_7", UnreadCount: 1, LastMessageTime: at.Add(-time.Hour)}},
	}, inbox.Options{UserID: "5"})
	require.NoError(t, ib.FetchAll(context.Background()))

	rt := realtimetest.New()
	t.Cleanup(ib.Attach(rt))

	chats := chat.NewRegistry(chat.Config{API: stubChatAPI{}, Realtime: rt}, nil)
	t.Cleanup(chats.CloseAll)

	sess, err := api.NewSession("", "5", "user", "")
	require.NoError(t, err)

	srv := New(Options{
		Session:  sess,
		Inbox:    ib,
		Chats:    chats,
		Realtime: stubStats{connected: true},
		Flags:    featureflags.NewManager("archive=on"),
		Hub:      notifications.NewHub(),
	})
	return fixture{srv: srv, rt: rt, inbox: ib, chats: chats}
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, f.srv.App(), http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "connected", got.Checks["realtime"])
	assert.Equal(t, "disabled", got.Checks["cache"])
	assert.Equal(t, "disabled", got.Checks["archive"])
}

func TestHealthCheck_CacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	srv := New(Options{Redis: rdb})
	resp, _ := do(t, srv.App(), http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetInbox(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, f.srv.App(), http.MethodGet, "/api/inbox", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var view inbox.View
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 3, view.TotalUnread)
	require.Len(t, view.Merged, 2)
	assert.Equal(t, "5_9", view.Merged[0].RoomID)

	resp, body = do(t, f.srv.App(), http.MethodGet, "/api/inbox/direct", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"5_7"`)

	resp, _ = do(t, f.srv.App(), http.MethodGet, "/api/inbox/archived", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSelectConversation(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, f.srv.App(), http.MethodPost, "/api/inbox/5_9/select", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"selected":"5_9","receipt_sent":true,"total_unread":1}`, string(body))
	assert.Len(t, f.rt.Emits(models.EventMarkMessageRead), 1)

	f.rt.SetConnected(false)
	resp, body = do(t, f.srv.App(), http.MethodPost, "/api/inbox/5_7/select", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"selected":"5_7","receipt_sent":false,"total_unread":0}`, string(body))
	assert.Equal(t, "5_7", f.inbox.Selected())

	resp, _ = do(t, f.srv.App(), http.MethodDelete, "/api/inbox/5_7/select", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, f.inbox.Selected())
}

func TestChatLifecycle(t *testing.T) {
	f := newFixture(t)
	app := f.srv.App()
	roomID := chat.Params{Kind: chat.KindDM, SelfID: "5", PeerID: "9"}.RoomID()

	resp, body := do(t, app, http.MethodPost, "/api/chats", OpenChatRequest{PeerID: "9"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var opened chatResponse
	require.NoError(t, json.Unmarshal(body, &opened))
	assert.Equal(t, roomID, opened.RoomID)
	assert.Len(t, opened.Messages, 1)

	resp, body = do(t, app, http.MethodPost, "/api/chats/"+roomID+"/messages", SendMessageRequest{Text: "hello"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	assert.Len(t, f.rt.Emits(models.EventSendMessage), 1)

	resp, body = do(t, app, http.MethodGet, "/api/chats/"+roomID+"/messages", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &opened))
	require.Len(t, opened.Messages, 2)
	assert.True(t, opened.Messages[1].Pending)

	resp, body = do(t, app, http.MethodPost, "/api/chats/"+roomID+"/messages/1/reactions", ReactionRequest{Emoji: "👍"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"emoji":"👍","reacted":true}`, string(body))

	resp, _ = do(t, app, http.MethodPost, "/api/chats/"+roomID+"/messages/404/reactions", ReactionRequest{Emoji: "👍"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/chats", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, http.MethodDelete, "/api/chats/"+roomID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, app, http.MethodGet, "/api/chats/"+roomID+"/messages", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, f.rt.Refs(roomID))
}

func TestOpenChat_Validation(t *testing.T) {
	f := newFixture(t)

	resp, _ := do(t, f.srv.App(), http.MethodPost, "/api/chats", OpenChatRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, f.srv.App(), http.MethodPost, "/api/chats", OpenChatRequest{Kind: "group", PeerID: "9"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, f.srv.App(), http.MethodPost, "/api/chats", OpenChatRequest{Kind: "product", PeerID: "9"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSendMessage_Disconnected(t *testing.T) {
	f := newFixture(t)
	roomID := chat.Params{Kind: chat.KindDM, SelfID: "5", PeerID: "9"}.RoomID()
	resp, _ := do(t, f.srv.App(), http.MethodPost, "/api/chats", OpenChatRequest{PeerID: "9"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	f.rt.SetConnected(false)
	resp, _ = do(t, f.srv.App(), http.MethodPost, "/api/chats/"+roomID+"/messages", SendMessageRequest{Text: "hello"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, f.srv.App(), http.MethodPost, "/api/chats/"+roomID+"/messages", SendMessageRequest{Text: "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRealtimeAndFlags(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, f.srv.App(), http.MethodGet, "/api/realtime", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"connected":true`)

	resp, body = do(t, f.srv.App(), http.MethodGet, "/api/flags", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var flags struct {
		Evaluated map[string]bool `json:"evaluated"`
	}
	require.NoError(t, json.Unmarshal(body, &flags))
	assert.True(t, flags.Evaluated[featureflags.Archive])
	assert.True(t, flags.Evaluated[featureflags.EchoDedupe])
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	f := newFixture(t)
	resp, _ := do(t, f.srv.App(), http.MethodGet, "/ws", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, body := do(t, f.srv.App(), http.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hoodlink_")
}

func TestMissingCollaborators(t *testing.T) {
	srv := New(Options{})
	for _, path := range []string{"/api/inbox", "/api/chats", "/api/realtime", "/ws"} {
		resp, _ := do(t, srv.App(), http.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestSwaggerDocs(t *testing.T) {
	srv := New(Options{})
	resp, body := do(t, srv.App(), http.MethodGet, "/api/swagger/doc.json", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "hoodlinkd local API", doc.Info.Title)
	assert.Equal(t, "/api", doc.BasePath)
	for path, method := range map[string]string{
		"/inbox":                   "get",
		"/inbox/{roomId}/select":   "post",
		"/chats/{roomId}/messages": "post",
		"/posts/{id}/comments":     "post",
		"/comments/{commentId}":    "delete",
		"/realtime":                "get",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}

	resp, _ = do(t, srv.App(), http.MethodGet, "/api/swagger/index.html", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
