package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/models"
	"hoodlink/internal/realtime/realtimetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu           sync.Mutex
	posts        []models.Post
	reactions    []models.PostReaction
	comments     []models.Comment
	commentsErr  error
	batchIDs     [][]models.ID
	reacted      []string
	removed      []models.ID
	likeResult   *api.LikeResult
	deleted      []models.ID
	nextComment  int
	reactionsErr error
}

func (f *fakeAPI) Posts(ctx context.Context) ([]models.Post, error) {
	return append([]models.Post(nil), f.posts...), nil
}

func (f *fakeAPI) PostReactions(ctx context.Context, ids []models.ID) ([]models.PostReaction, error) {
	f.mu.Lock()
	f.batchIDs = append(f.batchIDs, ids)
	f.mu.Unlock()
	return f.reactions, f.reactionsErr
}

func (f *fakeAPI) PostComments(ctx context.Context, ids []models.ID) ([]models.Comment, error) {
	f.mu.Lock()
	f.batchIDs = append(f.batchIDs, ids)
	f.mu.Unlock()
	return f.comments, f.commentsErr
}

func (f *fakeAPI) ReactToPost(ctx context.Context, postID models.ID, emoji string) error {
	f.reacted = append(f.reacted, postID.String()+":"+emoji)
	return nil
}

func (f *fakeAPI) RemovePostReaction(ctx context.Context, postID models.ID) error {
	f.removed = append(f.removed, postID)
	return nil
}

func (f *fakeAPI) AddComment(ctx context.Context, postID, parentID models.ID, content string) (*models.Comment, error) {
	f.nextComment++
	return &models.Comment{ID: models.ID("c" + string(rune('0'+f.nextComment))), Content: content}, nil
}

func (f *fakeAPI) ToggleCommentLike(ctx context.Context, commentID models.ID) (*api.LikeResult, error) {
	return f.likeResult, nil
}

func (f *fakeAPI) DeleteComment(ctx context.Context, commentID models.ID) error {
	f.deleted = append(f.deleted, commentID)
	return nil
}

func comment(id, post, parent string) models.Comment {
	return models.Comment{ID: models.ID(id), PostID: models.ID(post), ParentID: models.ID(parent), Content: id}
}

func fixture() *fakeAPI {
	return &fakeAPI{
		posts: []models.Post{
			{ID: "1", Content: "first", CreatedAt: time.Now()},
			{ID: "2", Content: "second", CreatedAt: time.Now()},
		},
		reactions: []models.PostReaction{
			{PostID: "1", UserID: "9", Emoji: "👍"},
			{PostID: "1", UserID: "5", Emoji: "❤️"},
		},
		comments: []models.Comment{
			comment("10", "1", ""),
			comment("11", "1", "10"),
			comment("12", "1", "11"),
			comment("13", "1", ""),
			comment("20", "2", ""),
		},
	}
}

func loadedFeed(t *testing.T) (*Feed, *fakeAPI) {
	t.Helper()
	fa := fixture()
	f := New(fa, "5")
	require.NoError(t, f.Load(context.Background()))
	return f, fa
}

func TestFeed_Load(t *testing.T) {
	f, fa := loadedFeed(t)

	assert.Len(t, fa.batchIDs, 2)
	for _, ids := range fa.batchIDs {
		assert.Equal(t, []models.ID{"1", "2"}, ids)
	}
	posts := f.Posts()
	require.Len(t, posts, 2)
	assert.Len(t, posts[0].Reactions, 2)
	assert.Equal(t, 4, posts[0].CommentCount)
	assert.Equal(t, 1, posts[1].CommentCount)
}

func TestFeed_LoadFailureKeepsState(t *testing.T) {
	f, fa := loadedFeed(t)
	fa.posts = []models.Post{{ID: "3"}}
	fa.commentsErr = errors.New("timeout")

	assert.Error(t, f.Load(context.Background()))
	assert.Len(t, f.Posts(), 2)
}

func TestApplyReaction(t *testing.T) {
	base := []models.PostReaction{{PostID: "1", UserID: "9", Emoji: "👍"}}

	added := ApplyReaction(base, "1", "5", "🔥")
	assert.Len(t, added, 2)

	replaced := ApplyReaction(added, "1", "5", "😂")
	require.Len(t, replaced, 2)
	assert.Equal(t, "😂", replaced[1].Emoji)

	removed := ApplyReaction(replaced, "1", "5", "😂")
	assert.Equal(t, base, removed)
}

func TestFeed_ToggleReaction(t *testing.T) {
	f, fa := loadedFeed(t)
	ctx := context.Background()

	emoji, err := f.ToggleReaction(ctx, "1", "❤️")
	require.NoError(t, err)
	assert.Empty(t, emoji)
	assert.Equal(t, []models.ID{"1"}, fa.removed)

	emoji, err = f.ToggleReaction(ctx, "1", "🔥")
	require.NoError(t, err)
	assert.Equal(t, "🔥", emoji)

	emoji, err = f.ToggleReaction(ctx, "1", "😂")
	require.NoError(t, err)
	assert.Equal(t, "😂", emoji)
	assert.Equal(t, []string{"1:🔥", "1:😂"}, fa.reacted)

	p, _ := f.Post("1")
	mine := 0
	for _, r := range p.Reactions {
		if r.UserID == "5" {
			mine++
		}
	}
	assert.Equal(t, 1, mine)

	_, err = f.ToggleReaction(ctx, "404", "🔥")
	assert.True(t, models.IsNotFound(err))
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree([]models.Comment{
		comment("1", "p", ""),
		comment("2", "p", "1"),
		comment("3", "p", "2"),
		comment("4", "p", "missing"),
		comment("5", "p", "1"),
		comment("6", "p", "6"),
		comment("2", "p", "1"),
	})

	require.Len(t, tree, 3)
	assert.Equal(t, models.ID("1"), tree[0].ID)
	assert.Equal(t, models.ID("4"), tree[1].ID)
	assert.Equal(t, models.ID("6"), tree[2].ID)

	require.Len(t, tree[0].Replies, 2)
	assert.Equal(t, models.ID("2"), tree[0].Replies[0].ID)
	assert.Equal(t, models.ID("5"), tree[0].Replies[1].ID)
	require.Len(t, tree[0].Replies[0].Replies, 1)
	assert.Equal(t, models.ID("3"), tree[0].Replies[0].Replies[0].ID)
}

func TestFeed_Comments(t *testing.T) {
	f, fa := loadedFeed(t)
	ctx := context.Background()

	reply, err := f.AddComment(ctx, "1", "13", "agreed")
	require.NoError(t, err)
	assert.Equal(t, models.ID("13"), reply.ParentID)
	assert.Equal(t, models.ID("5"), reply.UserID)

	tree := f.Comments("1")
	require.Len(t, tree, 2)
	require.Len(t, tree[1].Replies, 1)
	assert.Equal(t, "agreed", tree[1].Replies[0].Content)

	p, _ := f.Post("1")
	assert.Equal(t, 5, p.CommentCount)

	t.Run("like toggles locally", func(t *testing.T) {
		c, err := f.ToggleCommentLike(ctx, "10")
		require.NoError(t, err)
		assert.True(t, c.LikedByMe)
		assert.Equal(t, 1, c.LikeCount)

		c, err = f.ToggleCommentLike(ctx, "10")
		require.NoError(t, err)
		assert.False(t, c.LikedByMe)
		assert.Equal(t, 0, c.LikeCount)
	})

	t.Run("server like count wins", func(t *testing.T) {
		fa.likeResult = &api.LikeResult{Liked: true, LikeCount: 42}
		c, err := f.ToggleCommentLike(ctx, "13")
		require.NoError(t, err)
		assert.Equal(t, 42, c.LikeCount)
		fa.likeResult = nil
	})

	t.Run("delete removes the subtree", func(t *testing.T) {
		require.NoError(t, f.DeleteComment(ctx, "10"))
		tree := f.Comments("1")
		require.Len(t, tree, 1)
		assert.Equal(t, models.ID("13"), tree[0].ID)
		p, _ := f.Post("1")
		assert.Equal(t, 2, p.CommentCount)
	})
}

func TestFeed_Deltas(t *testing.T) {
	f, _ := loadedFeed(t)
	rt := realtimetest.New()
	ctx := context.Background()

	var changes []Change
	detach := f.Attach(rt, func(c Change) { changes = append(changes, c) })
	defer detach()

	release := f.Watch(rt, "1")
	assert.Equal(t, "post_1", rt.Joined()[0].ID)

	rt.Deliver(ctx, models.EventReceiveComment, comment("30", "1", "13"))
	rt.Deliver(ctx, models.EventReceiveComment, comment("30", "1", "13"))
	p, _ := f.Post("1")
	assert.Equal(t, 5, p.CommentCount)

	rt.Deliver(ctx, models.EventCommentDeleted, models.DeletedEvent{ID: "11", PostID: "1"})
	assert.Len(t, f.Comments("1"), 2)
	p, _ = f.Post("1")
	assert.Equal(t, 3, p.CommentCount)

	rt.Deliver(ctx, models.EventPostDeleted, models.DeletedEvent{ID: "2"})
	assert.Len(t, f.Posts(), 1)
	assert.Empty(t, f.Comments("2"))

	rt.Deliver(ctx, models.EventPostDeleted, models.DeletedEvent{ID: "2"})
	assert.Len(t, changes, 3)

	release()
	assert.Len(t, rt.Left(), 1)
}
