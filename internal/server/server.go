// Package server exposes the daemon's state on a local HTTP and WebSocket API.
package server

import (
	"context"
	"sync"
	"time"

	_ "hoodlink/docs"
	"hoodlink/internal/api"
	"hoodlink/internal/business"
	"hoodlink/internal/chat"
	"hoodlink/internal/config"
	"hoodlink/internal/featureflags"
	"hoodlink/internal/feed"
	"hoodlink/internal/inbox"
	"hoodlink/internal/models"
	"hoodlink/internal/notifications"
	"hoodlink/internal/observability"
	"hoodlink/internal/realtime"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// StatsSource reports realtime connection state. *realtime.Manager satisfies it.
type StatsSource interface {
	Stats() realtime.Stats
}

// Options are the already-initialized collaborators the server serves.
type Options struct {
	Config   *config.Config
	Session  *api.Session
	Inbox    *inbox.Inbox
	Chats    *chat.Registry
	Feed     *feed.Feed
	Business *business.Page
	Realtime StatsSource
	Flags    *featureflags.Manager
	Hub      *notifications.Hub
	DB       *gorm.DB
	Redis    *redis.Client
}

// Server holds the daemon dependencies and provides handlers.
type Server struct {
	config   *config.Config
	session  *api.Session
	inbox    *inbox.Inbox
	chats    *chat.Registry
	feed     *feed.Feed
	business *business.Page
	realtime StatsSource
	flags    *featureflags.Manager
	hub      *notifications.Hub
	db       *gorm.DB
	redis    *redis.Client
	app      *fiber.App
}

// promMiddleware registers its collectors on the default registry, which
// allows only one instance per process.
var promMiddleware = sync.OnceValue(func() *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New("hoodlinkd")
})

// New creates a server and its fiber app.
func New(opts Options) *Server {
	s := &Server{
		config:   opts.Config,
		session:  opts.Session,
		inbox:    opts.Inbox,
		chats:    opts.Chats,
		feed:     opts.Feed,
		business: opts.Business,
		realtime: opts.Realtime,
		flags:    opts.Flags,
		hub:      opts.Hub,
		db:       opts.DB,
		redis:    opts.Redis,
	}
	if s.config == nil {
		s.config = &config.Config{Port: "8390"}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "hoodlinkd",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, models.NewAPIError(fe.Code, fe.Message))
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled request error", "error", err)
			return models.RespondWithError(c, 0, err)
		},
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s
}

// App returns the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(contextMiddleware())

	prom := promMiddleware()
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	app.Use(structuredLogger())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)

	api := app.Group("/api")

	inboxes := api.Group("/inbox", s.requireInbox)
	inboxes.Get("/", s.GetInbox)
	inboxes.Post("/refresh", s.RefreshInbox)
	// Specific /:roomId/select before generic /:category
	inboxes.Post("/:roomId/select", s.SelectConversation)
	inboxes.Delete("/:roomId/select", s.DeselectConversation)
	inboxes.Get("/:category", s.GetInboxCategory)

	chats := api.Group("/chats", s.requireChats)
	chats.Get("/", s.ListChats)
	chats.Post("/", s.OpenChat)
	chats.Get("/:roomId/messages", s.GetMessages)
	chats.Post("/:roomId/messages", s.SendMessage)
	chats.Put("/:roomId/messages/:messageId", s.EditMessage)
	chats.Delete("/:roomId/messages/:messageId", s.DeleteMessage)
	chats.Post("/:roomId/messages/:messageId/reactions", s.ToggleReaction)
	chats.Post("/:roomId/typing", s.Typing)
	chats.Post("/:roomId/clear", s.ClearChat)
	chats.Delete("/:roomId", s.CloseChat)

	posts := api.Group("/posts", s.requireFeed)
	posts.Get("/", s.GetPosts)
	posts.Get("/:id", s.GetPost)
	posts.Post("/:id/reactions", s.TogglePostReaction)
	posts.Post("/:id/comments", s.CreateComment)

	comments := api.Group("/comments", s.requireFeed)
	comments.Post("/:commentId/like", s.ToggleCommentLike)
	comments.Delete("/:commentId", s.DeleteComment)

	api.Get("/business", s.GetBusinessPage)
	api.Get("/realtime", s.GetRealtimeStats)
	api.Get("/flags", s.GetFeatureFlags)

	api.Get("/swagger/*", swagger.HandlerDefault)

	app.Use("/ws", s.requireUpgrade)
	app.Get("/ws", s.WebsocketHandler())
}

// HealthCheck reports the realtime connection and the optional stores.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if s.realtime != nil {
		if s.realtime.Stats().Connected {
			checks["realtime"] = "connected"
		} else {
			checks["realtime"] = "disconnected"
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["cache"] = "unhealthy"
			healthy = false
		} else {
			checks["cache"] = "healthy"
		}
	} else {
		checks["cache"] = "disabled"
	}

	if s.db != nil {
		status := "healthy"
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = "unhealthy"
			healthy = false
		}
		checks["archive"] = status
	} else {
		checks["archive"] = "disabled"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	addr := "127.0.0.1:" + s.config.Port
	observability.GlobalLogger.Info("local API listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the HTTP server and closes local websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			observability.GlobalLogger.Warn("error shutting down local hub", "error", err)
		}
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		observability.GlobalLogger.Warn("error shutting down HTTP server", "error", err)
		return err
	}
	return nil
}
