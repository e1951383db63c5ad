// Package feed keeps the post feed with its reactions and comment trees in
// sync from batch REST snapshots and realtime comment deltas.
package feed

import (
	"context"
	"slices"
	"sync"

	"hoodlink/internal/api"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// API is the REST surface the feed needs. *api.Client satisfies it.
type API interface {
	Posts(ctx context.Context) ([]models.Post, error)
	PostReactions(ctx context.Context, postIDs []models.ID) ([]models.PostReaction, error)
	PostComments(ctx context.Context, postIDs []models.ID) ([]models.Comment, error)
	ReactToPost(ctx context.Context, postID models.ID, emoji string) error
	RemovePostReaction(ctx context.Context, postID models.ID) error
	AddComment(ctx context.Context, postID, parentID models.ID, content string) (*models.Comment, error)
	ToggleCommentLike(ctx context.Context, commentID models.ID) (*api.LikeResult, error)
	DeleteComment(ctx context.Context, commentID models.ID) error
}

// Feed holds posts and their comments, keyed by post id.
type Feed struct {
	api    API
	userID models.ID
	log    *observability.SyncLogger

	mu       sync.RWMutex
	posts    []models.Post
	comments map[models.ID][]models.Comment
}

// New creates an empty feed for userID.
func New(client API, userID models.ID) *Feed {
	return &Feed{
		api:      client,
		userID:   userID,
		log:      observability.NewSyncLogger("feed"),
		comments: make(map[models.ID][]models.Comment),
	}
}

// Load fetches the posts, then their reactions and comments in parallel.
// State is replaced only when every call succeeded.
func (f *Feed) Load(ctx context.Context) error {
	span, ctx := observability.StartInternalSpan(ctx, "feed.Load")
	defer span.End()

	posts, err := f.api.Posts(ctx)
	if err != nil {
		span.SetError(err)
		f.log.LogError(ctx, "load_posts", "", err)
		return err
	}
	ids := make([]models.ID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	span.AddAttributes(attribute.Int("feed.posts", len(ids)))

	var reactions []models.PostReaction
	var comments []models.Comment
	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			reactions, err = f.api.PostReactions(gctx, ids)
			return err
		})
		g.Go(func() (err error) {
			comments, err = f.api.PostComments(gctx, ids)
			return err
		})
		if err := g.Wait(); err != nil {
			span.SetError(err)
			f.log.LogError(ctx, "load_post_details", "", err)
			return err
		}
	}

	byPost := make(map[models.ID][]models.PostReaction, len(ids))
	for _, r := range reactions {
		byPost[r.PostID] = append(byPost[r.PostID], r)
	}
	commentsByPost := make(map[models.ID][]models.Comment, len(ids))
	for _, c := range comments {
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], c)
	}
	for i := range posts {
		if rs, ok := byPost[posts[i].ID]; ok {
			posts[i].Reactions = rs
		}
		if n := len(commentsByPost[posts[i].ID]); n > posts[i].CommentCount {
			posts[i].CommentCount = n
		}
	}

	f.mu.Lock()
	f.posts = posts
	f.comments = commentsByPost
	f.mu.Unlock()
	return nil
}

// Posts returns a copy of the posts in feed order.
func (f *Feed) Posts() []models.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Post, len(f.posts))
	for i, p := range f.posts {
		out[i] = p
		out[i].Reactions = slices.Clone(p.Reactions)
	}
	return out
}

// Post looks up one post.
func (f *Feed) Post(id models.ID) (models.Post, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	idx := f.postIndex(id)
	if idx < 0 {
		return models.Post{}, false
	}
	p := f.posts[idx]
	p.Reactions = slices.Clone(p.Reactions)
	return p, true
}

func (f *Feed) postIndex(id models.ID) int {
	return slices.IndexFunc(f.posts, func(p models.Post) bool { return p.ID == id })
}

// ApplyReaction gives userID at most one reaction on the post: the same emoji
// again removes it, a different emoji replaces it.
func ApplyReaction(reactions []models.PostReaction, postID, userID models.ID, emoji string) []models.PostReaction {
	out := make([]models.PostReaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID != userID {
			out = append(out, r)
			continue
		}
		if r.Emoji == emoji {
			removed = true
		}
	}
	if !removed {
		out = append(out, models.PostReaction{PostID: postID, UserID: userID, Emoji: emoji})
	}
	return out
}

// ToggleReaction toggles the current user's emoji on a post once the server
// accepted it. It returns the user's emoji afterwards, empty when removed.
func (f *Feed) ToggleReaction(ctx context.Context, postID models.ID, emoji string) (string, error) {
	if emoji == "" {
		return "", models.NewValidationError("emoji is required")
	}
	f.mu.RLock()
	idx := f.postIndex(postID)
	var current string
	if idx >= 0 {
		for _, r := range f.posts[idx].Reactions {
			if r.UserID == f.userID {
				current = r.Emoji
			}
		}
	}
	f.mu.RUnlock()
	if idx < 0 {
		return "", models.NewNotFoundError("post", postID)
	}

	var err error
	if current == emoji {
		err = f.api.RemovePostReaction(ctx, postID)
	} else {
		err = f.api.ReactToPost(ctx, postID, emoji)
	}
	if err != nil {
		f.log.LogError(ctx, "toggle_post_reaction", postID.String(), err)
		return current, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if idx = f.postIndex(postID); idx < 0 {
		return "", nil
	}
	f.posts[idx].Reactions = ApplyReaction(f.posts[idx].Reactions, postID, f.userID, emoji)
	if current == emoji {
		return "", nil
	}
	return emoji, nil
}
