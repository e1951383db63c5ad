package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/feed"
	"hoodlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeedAPI struct{}

func (stubFeedAPI) Posts(context.Context) ([]models.Post, error) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return []models.Post{
		{ID: "p2", AuthorID: "7", Content: "lost cat", CreatedAt: at},
		{ID: "p1", AuthorID: "9", Content: "street fair", CreatedAt: at.Add(-time.Hour)},
	}, nil
}

func (stubFeedAPI) PostReactions(context.Context, []models.ID) ([]models.PostReaction, error) {
	return []models.PostReaction{{PostID: "p1", UserID: "9", Emoji: "🎉"}}, nil
}

func (stubFeedAPI) PostComments(context.Context, []models.ID) ([]models.Comment, error) {
	return []models.Comment{
		{ID: "c1", PostID: "p2", UserID: "9", Content: "seen it on elm st"},
		{ID: "c2", PostID: "p2", ParentID: "c1", UserID: "7", Content: "thanks"},
	}, nil
}

func (stubFeedAPI) ReactToPost(context.Context, models.ID, string) error { return nil }

func (stubFeedAPI) RemovePostReaction(context.Context, models.ID) error { return nil }

func (stubFeedAPI) AddComment(_ context.Context, postID, parentID models.ID, content string) (*models.Comment, error) {
	return &models.Comment{ID: "c3", Content: content}, nil
}

func (stubFeedAPI) ToggleCommentLike(context.Context, models.ID) (*api.LikeResult, error) {
	return &api.LikeResult{Liked: true, LikeCount: 1}, nil
}

func (stubFeedAPI) DeleteComment(context.Context, models.ID) error { return nil }

func newFeedServer(t *testing.T) *Server {
	t.Helper()
	f := feed.New(stubFeedAPI{}, "5")
	require.NoError(t, f.Load(context.Background()))
	return New(Options{Feed: f})
}

func TestGetPosts_Pagination(t *testing.T) {
	srv := newFeedServer(t)

	resp, body := do(t, srv.App(), http.MethodGet, "/api/posts?limit=1&offset=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Posts []models.Post `json:"posts"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Posts, 1)
	assert.Equal(t, models.ID("p1"), got.Posts[0].ID)

	_, body = do(t, srv.App(), http.MethodGet, "/api/posts?offset=50", nil)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Empty(t, got.Posts)
}

func TestGetPost(t *testing.T) {
	srv := newFeedServer(t)

	resp, body := do(t, srv.App(), http.MethodGet, "/api/posts/p2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Post     models.Post       `json:"post"`
		Comments []*models.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Post.CommentCount)
	require.Len(t, got.Comments, 1)
	require.Len(t, got.Comments[0].Replies, 1)
	assert.Equal(t, models.ID("c2"), got.Comments[0].Replies[0].ID)

	resp, _ = do(t, srv.App(), http.MethodGet, "/api/posts/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPostReactionsAndComments(t *testing.T) {
	srv := newFeedServer(t)
	app := srv.App()

	resp, body := do(t, app, http.MethodPost, "/api/posts/p1/reactions", ReactionRequest{Emoji: "👍"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "👍")

	resp, _ = do(t, app, http.MethodPost, "/api/posts/p1/reactions", ReactionRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodPost, "/api/posts/p2/comments", CommentRequest{Content: "found her!", ParentID: "c1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var c models.Comment
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, models.ID("p2"), c.PostID)
	assert.Equal(t, models.ID("c1"), c.ParentID)

	resp, _ = do(t, app, http.MethodPost, "/api/posts/p2/comments", CommentRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodPost, "/api/comments/c1/like", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &c))
	assert.True(t, c.LikedByMe)
	assert.Equal(t, 1, c.LikeCount)

	resp, _ = do(t, app, http.MethodDelete, "/api/comments/c1", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, body = do(t, app, http.MethodGet, "/api/posts/p2", nil)
	assert.NotContains(t, string(body), "found her!")
}

func TestFeedRoutesWithoutFeed(t *testing.T) {
	srv := New(Options{})
	resp, _ := do(t, srv.App(), http.MethodGet, "/api/posts", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
