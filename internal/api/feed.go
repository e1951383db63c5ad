package api

import (
	"context"
	"fmt"
	"net/http"

	"hoodlink/internal/models"
)

// Posts lists the feed.
func (c *Client) Posts(ctx context.Context) ([]models.Post, error) {
	return getList[models.Post](ctx, c, "/api/posts", "/api/posts", nil)
}

func idStrings(ids []models.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// PostReactions fetches reactions for many posts in one call.
func (c *Client) PostReactions(ctx context.Context, postIDs []models.ID) ([]models.PostReaction, error) {
	return batchCall(ctx, c, "/api/posts/reactions/batch", postIDs, decodeList[models.PostReaction])
}

// PostComments fetches comments and replies for many posts in one call.
func (c *Client) PostComments(ctx context.Context, postIDs []models.ID) ([]models.Comment, error) {
	return batchCall(ctx, c, "/api/posts/comments/batch", postIDs, decodeList[models.Comment])
}

func batchCall[T any](ctx context.Context, c *Client, route string, postIDs []models.ID, decode func([]byte) ([]T, error)) ([]T, error) {
	if len(postIDs) == 0 {
		return []T{}, nil
	}
	r, err := jsonRequest(http.MethodPost, route, route, map[string][]string{"postIds": idStrings(postIDs)})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	out, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", route, err)
	}
	return out, nil
}

// ReactToPost sets the user's reaction on a post.
func (c *Client) ReactToPost(ctx context.Context, postID models.ID, emoji string) error {
	return c.sendOne(ctx, http.MethodPost, "/api/posts/:id/reactions", "/api/posts/"+escape(postID)+"/reactions", "", map[string]string{"emoji": emoji}, nil)
}

// RemovePostReaction clears the user's reaction on a post.
func (c *Client) RemovePostReaction(ctx context.Context, postID models.ID) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, route: "/api/posts/:id/reactions", path: "/api/posts/" + escape(postID) + "/reactions"})
	return err
}

// AddComment posts a comment, or a reply when parentID is set.
func (c *Client) AddComment(ctx context.Context, postID, parentID models.ID, content string) (*models.Comment, error) {
	payload := map[string]any{"content": content}
	if !parentID.Empty() {
		payload["parent_id"] = parentID
	}
	var out models.Comment
	if err := c.sendOne(ctx, http.MethodPost, "/api/posts/:id/comments", "/api/posts/"+escape(postID)+"/comments", "comment", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeResult is the server's view of a comment like after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleCommentLike likes or unlikes a comment.
func (c *Client) ToggleCommentLike(ctx context.Context, commentID models.ID) (*LikeResult, error) {
	var out LikeResult
	if err := c.sendOne(ctx, http.MethodPost, "/api/comments/:id/like", "/api/comments/"+escape(commentID)+"/like", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment deletes a comment and its replies.
func (c *Client) DeleteComment(ctx context.Context, commentID models.ID) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, route: "/api/comments/:id", path: "/api/comments/" + escape(commentID)})
	return err
}
