package server

import (
	"log/slog"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// contextMiddleware carries the request id into the request context as the
// correlation id used by every log record.
func contextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// structuredLogger logs every request through slog.
func structuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
			slog.String("correlation_id", observability.ExtractCorrelationID(c.UserContext())),
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.DebugContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}

func (s *Server) requireInbox(c *fiber.Ctx) error {
	if s.inbox == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAPIError(fiber.StatusServiceUnavailable, "inbox is not running"))
	}
	return c.Next()
}

func (s *Server) requireChats(c *fiber.Ctx) error {
	if s.chats == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAPIError(fiber.StatusServiceUnavailable, "chat registry is not running"))
	}
	return c.Next()
}

func (s *Server) requireFeed(c *fiber.Ctx) error {
	if s.feed == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAPIError(fiber.StatusServiceUnavailable, "feed is not loaded"))
	}
	return c.Next()
}

func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAPIError(fiber.StatusServiceUnavailable, "local hub is not running"))
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}
