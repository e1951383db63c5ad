package server

import (
	"errors"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// errResponseWritten means a helper already wrote the response. Handlers
// return nil when they see it.
var errResponseWritten = errors.New("response already written")

// GetRealtimeStats returns the connection manager state.
// @Summary Realtime connection state
// @Tags realtime
// @Produce json
// @Success 200 {object} realtime.Stats
// @Failure 503 {object} models.ErrorResponse
// @Router /realtime [get]
func (s *Server) GetRealtimeStats(c *fiber.Ctx) error {
	if s.realtime == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAPIError(fiber.StatusServiceUnavailable, "realtime is not running"))
	}
	return c.JSON(s.realtime.Stats())
}

// GetFeatureFlags returns configured flags and their state for the current user.
// @Summary Feature flags
// @Tags realtime
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.flags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}
	var userID models.ID
	if s.session != nil {
		userID = s.session.UserID
	}
	return c.JSON(fiber.Map{
		"raw":       s.flags.Raw(),
		"evaluated": s.flags.Snapshot(userID),
	})
}

// WebsocketHandler streams inbox and chat frames to a local client.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			observability.GlobalLogger.Warn("local websocket rejected", "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		if room := conn.Query("room"); room != "" {
			client.Watch(room)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// GetBusinessPage returns the live business page of the signed-in owner.
// @Summary Business page
// @Tags business
// @Produce json
// @Success 200 {object} business.PageView
// @Failure 404 {object} models.ErrorResponse
// @Router /business [get]
func (s *Server) GetBusinessPage(c *fiber.Ctx) error {
	if s.business == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewAPIError(fiber.StatusNotFound, "no business configured"))
	}
	return c.JSON(s.business.View())
}
