package models

import "time"

// Post is a feed entry.
type Post struct {
	ID           ID             `json:"id"`
	AuthorID     ID             `json:"user_id"`
	AuthorName   string         `json:"author_name,omitempty"`
	Content      string         `json:"content"`
	Media        []Media        `json:"media,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Reactions    []PostReaction `json:"reactions,omitempty"`
	CommentCount int            `json:"comment_count"`
}

// PostReaction is one user's single reaction slot on a post.
type PostReaction struct {
	PostID ID     `json:"post_id"`
	UserID ID     `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// Comment is a comment or, when ParentID is set, a reply.
type Comment struct {
	ID        ID         `json:"id"`
	PostID    ID         `json:"post_id"`
	ParentID  ID         `json:"parent_id,omitempty"`
	UserID    ID         `json:"user_id"`
	Content   string     `json:"content"`
	LikeCount int        `json:"like_count"`
	LikedByMe bool       `json:"liked_by_me"`
	CreatedAt time.Time  `json:"created_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}
