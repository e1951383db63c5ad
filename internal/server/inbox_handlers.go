package server

import (
	"errors"
	"fmt"

	"hoodlink/internal/inbox"
	"hoodlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetInbox returns the merged list, every tab and the total unread count.
// @Summary Get inbox
// @Description Merged conversation list, every tab and the total unread count
// @Tags inbox
// @Produce json
// @Success 200 {object} inbox.View
// @Failure 503 {object} models.ErrorResponse
// @Router /inbox [get]
func (s *Server) GetInbox(c *fiber.Ctx) error {
	return c.JSON(s.inbox.Snapshot())
}

// GetInboxCategory returns one tab.
// @Summary Get inbox tab
// @Tags inbox
// @Produce json
// @Param category path string true "general, direct, business or business_sales"
// @Success 200 {array} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Router /inbox/{category} [get]
func (s *Server) GetInboxCategory(c *fiber.Ctx) error {
	cat, ok := inbox.ParseCategory(c.Params("category"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("unknown inbox category %q", c.Params("category"))))
	}
	list := s.inbox.List(cat)
	if list == nil {
		list = []models.Conversation{}
	}
	return c.JSON(fiber.Map{
		"category":      cat,
		"conversations": list,
	})
}

// RefreshInbox refetches every tab.
// @Summary Refetch inbox
// @Tags inbox
// @Produce json
// @Success 200 {object} inbox.View
// @Failure 502 {object} models.ErrorResponse
// @Router /inbox/refresh [post]
func (s *Server) RefreshInbox(c *fiber.Ctx) error {
	if err := s.inbox.Refetch(c.UserContext(), "manual"); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(s.inbox.Snapshot())
}

// SelectConversation opens a conversation and zeroes its unread count. The
// local reset sticks even when the read receipt could not be emitted.
// @Summary Select conversation
// @Description Zeroes the unread count locally and emits the read receipt when connected
// @Tags inbox
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} object{selected=string,receipt_sent=bool,total_unread=int}
// @Router /inbox/{roomId}/select [post]
func (s *Server) SelectConversation(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	err := s.inbox.Select(c.UserContext(), roomID)
	if err != nil && !errors.Is(err, models.ErrNotConnected) {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{
		"selected":     roomID,
		"receipt_sent": err == nil,
		"total_unread": s.inbox.TotalUnread(),
	})
}

// DeselectConversation clears the selection if roomId is selected.
// @Summary Deselect conversation
// @Tags inbox
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 204
// @Router /inbox/{roomId}/select [delete]
func (s *Server) DeselectConversation(c *fiber.Ctx) error {
	s.inbox.Deselect(c.Params("roomId"))
	return c.SendStatus(fiber.StatusNoContent)
}
