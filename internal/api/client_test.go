package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hoodlink/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticToken("tok-123"), 5*time.Second)
}

func TestConversations_BareArrayAndWrapper(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/messages/conversations":
			_, _ = w.Write([]byte(`[{"room_id":"1_2","unread_count":3}]`))
		case "/api/messages/conversations/direct":
			_, _ = w.Write([]byte(`{"conversations":[{"room_id":"1_3"}]}`))
		case "/api/businesses/9/conversations":
			_, _ = w.Write([]byte(`{"data":[{"room_id":"4_business-9"}]}`))
		case "/api/messages/business-conversations":
			_, _ = w.Write([]byte(`null`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	general, err := c.GeneralConversations(ctx)
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.Equal(t, 3, general[0].UnreadCount)

	direct, err := c.DirectConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1_3", direct[0].RoomID)

	sales, err := c.BusinessSalesConversations(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "4_business-9", sales[0].RoomID)

	business, err := c.BusinessConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, business)
}

func TestDo_NonSuccessBecomesAppError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/messages/conversations" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"token expired"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.GeneralConversations(context.Background())
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Equal(t, "token expired", appErr.Message)

	_, err = c.DirectConversations(context.Background())
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "upstream exploded", appErr.Message)
}

func TestDo_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil, time.Second)
	_, err := c.GeneralConversations(context.Background())
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TRANSPORT_ERROR", appErr.Code)
}

func TestRoomMessages_ProductQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/5_9_31", r.URL.Path)
		assert.Equal(t, "31", r.URL.Query().Get("productId"))
		_, _ = w.Write([]byte(`{"messages":[{"message_id":1,"room_id":"5_9_31","text":"hi"}]}`))
	})
	msgs, err := c.RoomMessages(context.Background(), "5_9_31", "31")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.ID("1"), msgs[0].MessageID)
}

func TestSendMessage_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/send", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "5_9", r.FormValue("room_id"))
		assert.Equal(t, "hello", r.FormValue("text"))
		assert.Equal(t, "cid-1", r.FormValue("client_message_id"))
		assert.Empty(t, r.FormValue("product_id"))

		var media []models.Media
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("media")), &media))
		assert.Equal(t, models.MediaImage, media[0].Type)

		_, _ = w.Write([]byte(`{"message":{"message_id":"77","room_id":"5_9","client_message_id":"cid-1","text":"hello"}}`))
	})

	out, err := c.SendMessage(context.Background(), models.Message{
		RoomID:          "5_9",
		SenderID:        "5",
		RecipientID:     "9",
		Text:            "hello",
		ClientMessageID: "cid-1",
		Media:           []models.Media{{URL: "http://x/a.png", Type: models.MediaImage}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("77"), out.MessageID)
	assert.Equal(t, "cid-1", out.ClientMessageID)
}

func TestEditAndDelete(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		if r.URL.Path == "/messages/edit" {
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "77", r.FormValue("message_id"))
			_, _ = w.Write([]byte(`{"message_id":"77","room_id":"5_9","text":"edited"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	edited, err := c.EditMessage(ctx, "77", "5_9", "edited", nil)
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Text)

	require.NoError(t, c.DeleteMessage(ctx, "77", "5_9"))
	require.NoError(t, c.DeleteChat(ctx, "5_9"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /messages/edit?",
		"DELETE /api/messages/77?roomId=5_9",
		"POST /api/chat/5_9/delete?",
	}, calls)
}

func TestUploadMessageMedia(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/message-media", r.URL.Path)
		file, header, err := r.FormFile("mediaFile")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "clip.mp4", header.Filename)
		assert.Equal(t, "video-bytes", string(data))
		_, _ = w.Write([]byte(`{"filePath":"/uploads/clip.mp4"}`))
	})

	media, err := c.UploadMessageMedia(context.Background(), Upload{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Body:        strings.NewReader("video-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, c.BaseURL+"/uploads/clip.mp4", media.URL)
	assert.Equal(t, models.MediaVideo, media.Type)
}

func TestUploadMessageMedia_FailureWrapsSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})
	_, err := c.UploadMessageMedia(context.Background(), Upload{Filename: "a.png", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, models.ErrUploadFailed)
}

func webpHeader(magic byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(18))
	buf.WriteString("WEBPVP8L")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(5))
	buf.Write([]byte{magic, 0, 0, 0, 0, 0})
	return buf.Bytes()
}

func TestDetectContentType(t *testing.T) {
	ct, err := DetectContentType("pic.webp", webpHeader(0x2f))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ct)

	_, err = DetectContentType("pic.webp", webpHeader(0x00))
	assert.ErrorIs(t, err, models.ErrUploadFailed)

	ct, err = DetectContentType("photo.png", []byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
}

func TestFeedBatchEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PostIDs []string `json:"postIds"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"1", "2"}, body.PostIDs)
		switch r.URL.Path {
		case "/api/posts/reactions/batch":
			_, _ = w.Write([]byte(`{"reactions":[{"post_id":1,"user_id":4,"emoji":"👍"}]}`))
		case "/api/posts/comments/batch":
			_, _ = w.Write([]byte(`[{"id":10,"post_id":1,"user_id":4,"content":"nice"}]`))
		}
	})
	ctx := context.Background()

	reactions, err := c.PostReactions(ctx, []models.ID{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "👍", reactions[0].Emoji)

	comments, err := c.PostComments(ctx, []models.ID{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "nice", comments[0].Content)

	none, err := c.PostComments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	s, err := NewSession(token, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), s.UserID)
	assert.Equal(t, "user", s.UserType)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(exp.Add(time.Minute)))
	assert.Equal(t, token, s.Token())

	numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 7}).SignedString([]byte("k"))
	require.NoError(t, err)
	s, err = NewSession(numeric, "", "business", "3")
	require.NoError(t, err)
	assert.Equal(t, models.ID("7"), s.UserID)
	assert.True(t, s.IsBusiness())

	_, err = NewSession("", "", "", "")
	assert.Error(t, err)
}
