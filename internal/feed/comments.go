package feed

import (
	"context"
	"slices"

	"hoodlink/internal/api"
	"hoodlink/internal/models"
)

// BuildTree nests replies under their parents. Comments whose parent is
// missing become roots. Siblings keep their input order.
func BuildTree(comments []models.Comment) []*models.Comment {
	nodes := make(map[models.ID]*models.Comment, len(comments))
	ordered := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		node := c
		node.Replies = nil
		nodes[c.ID] = &node
		ordered = append(ordered, &node)
	}

	var roots []*models.Comment
	for _, node := range ordered {
		parent, ok := nodes[node.ParentID]
		if node.ParentID.Empty() || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}
	return roots
}

// Comments returns the comment tree of a post.
func (f *Feed) Comments(postID models.ID) []*models.Comment {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return BuildTree(f.comments[postID])
}

// insertComment adds c unless a comment with its id is known. It reports
// whether c was new.
func (f *Feed) insertComment(c models.Comment) bool {
	list := f.comments[c.PostID]
	if slices.ContainsFunc(list, func(x models.Comment) bool { return x.ID == c.ID }) {
		return false
	}
	c.Replies = nil
	f.comments[c.PostID] = append(list, c)
	if idx := f.postIndex(c.PostID); idx >= 0 {
		f.posts[idx].CommentCount++
	}
	return true
}

// AddComment posts a comment, or a reply when parentID is set.
func (f *Feed) AddComment(ctx context.Context, postID, parentID models.ID, content string) (models.Comment, error) {
	if content == "" {
		return models.Comment{}, models.NewValidationError("comment content is required")
	}
	c, err := f.api.AddComment(ctx, postID, parentID, content)
	if err != nil {
		f.log.LogError(ctx, "add_comment", postID.String(), err)
		return models.Comment{}, err
	}
	out := *c
	if out.PostID.Empty() {
		out.PostID = postID
	}
	if out.ParentID.Empty() {
		out.ParentID = parentID
	}
	if out.UserID.Empty() {
		out.UserID = f.userID
	}

	f.mu.Lock()
	f.insertComment(out)
	f.mu.Unlock()
	return out, nil
}

func (f *Feed) findComment(commentID models.ID) (models.ID, int) {
	for postID, list := range f.comments {
		for i := range list {
			if list[i].ID == commentID {
				return postID, i
			}
		}
	}
	return "", -1
}

// applyLike flips the like locally and prefers the server's numbers when it
// sent any.
func applyLike(c *models.Comment, res *api.LikeResult) {
	liked := !c.LikedByMe
	count := c.LikeCount
	if liked {
		count++
	} else if count > 0 {
		count--
	}
	if res != nil && (res.Liked || res.LikeCount > 0) {
		liked = res.Liked
		count = res.LikeCount
	}
	c.LikedByMe = liked
	c.LikeCount = count
}

// ToggleCommentLike likes or unlikes a comment.
func (f *Feed) ToggleCommentLike(ctx context.Context, commentID models.ID) (models.Comment, error) {
	f.mu.RLock()
	_, idx := f.findComment(commentID)
	f.mu.RUnlock()
	if idx < 0 {
		return models.Comment{}, models.NewNotFoundError("comment", commentID)
	}

	res, err := f.api.ToggleCommentLike(ctx, commentID)
	if err != nil {
		f.log.LogError(ctx, "toggle_comment_like", commentID.String(), err)
		return models.Comment{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	postID, idx := f.findComment(commentID)
	if idx < 0 {
		return models.Comment{}, models.NewNotFoundError("comment", commentID)
	}
	c := &f.comments[postID][idx]
	applyLike(c, res)
	return *c, nil
}

// DeleteComment deletes a comment and removes it with all its replies.
func (f *Feed) DeleteComment(ctx context.Context, commentID models.ID) error {
	if err := f.api.DeleteComment(ctx, commentID); err != nil {
		f.log.LogError(ctx, "delete_comment", commentID.String(), err)
		return err
	}
	f.mu.Lock()
	f.removeSubtree(commentID)
	f.mu.Unlock()
	return nil
}

// removeSubtree drops a comment and every reply below it. It returns the
// number of comments removed.
func (f *Feed) removeSubtree(commentID models.ID) int {
	postID, idx := f.findComment(commentID)
	if idx < 0 {
		return 0
	}
	list := f.comments[postID]
	doomed := map[models.ID]bool{commentID: true}
	for changed := true; changed; {
		changed = false
		for _, c := range list {
			if !doomed[c.ID] && doomed[c.ParentID] {
				doomed[c.ID] = true
				changed = true
			}
		}
	}
	kept := list[:0:0]
	for _, c := range list {
		if !doomed[c.ID] {
			kept = append(kept, c)
		}
	}
	f.comments[postID] = kept

	removed := len(list) - len(kept)
	if pi := f.postIndex(postID); pi >= 0 {
		f.posts[pi].CommentCount = max(0, f.posts[pi].CommentCount-removed)
	}
	return removed
}
