package server

import (
	"hoodlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CommentRequest adds a comment, or a reply when parent_id is set.
type CommentRequest struct {
	Content  string    `json:"content"`
	ParentID models.ID `json:"parent_id"`
}

func parsePagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", 10)
	if limit > 100 {
		limit = 100
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// GetPosts returns a page of the loaded feed, newest first.
// @Summary List posts
// @Tags feed
// @Produce json
// @Param offset query int false "Offset"
// @Param limit query int false "Limit (max 100)"
// @Success 200 {object} object{posts=[]models.Post,total=int,offset=int,limit=int}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	posts := s.feed.Posts()
	total := len(posts)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return c.JSON(fiber.Map{
		"posts":  posts[offset:end],
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// GetPost returns one post with its comment tree.
// @Summary Get post with comments
// @Tags feed
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{post=models.Post,comments=[]models.Comment}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	post, ok := s.feed.Post(id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Post", id))
	}
	return c.JSON(fiber.Map{
		"post":     post,
		"comments": s.feed.Comments(id),
	})
}

// TogglePostReaction toggles the user's emoji on a post.
// @Summary Toggle post reaction
// @Tags feed
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body server.ReactionRequest true "Emoji"
// @Success 200 {object} object{emoji=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id}/reactions [post]
func (s *Server) TogglePostReaction(c *fiber.Ctx) error {
	var req ReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	emoji, err := s.feed.ToggleReaction(c.UserContext(), models.ID(c.Params("id")), req.Emoji)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"emoji": emoji})
}

// CreateComment posts a comment on a post.
// @Summary Add comment
// @Tags feed
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body server.CommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	comment, err := s.feed.AddComment(c.UserContext(), models.ID(c.Params("id")), req.ParentID, req.Content)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ToggleCommentLike likes or unlikes a comment.
// @Summary Toggle comment like
// @Tags feed
// @Produce json
// @Param commentId path string true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId}/like [post]
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	comment, err := s.feed.ToggleCommentLike(c.UserContext(), models.ID(c.Params("commentId")))
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(comment)
}

// DeleteComment removes a comment and its replies.
// @Summary Delete comment
// @Tags feed
// @Produce json
// @Param commentId path string true "Comment ID"
// @Success 204
// @Router /comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	if err := s.feed.DeleteComment(c.UserContext(), models.ID(c.Params("commentId"))); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
