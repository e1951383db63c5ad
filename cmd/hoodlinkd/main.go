// Command hoodlinkd keeps the inbox and open chats in sync with the server and
// serves them on a local HTTP and WebSocket API.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hoodlink/internal/bootstrap"
	"hoodlink/internal/business"
	"hoodlink/internal/chat"
	"hoodlink/internal/config"
	"hoodlink/internal/featureflags"
	"hoodlink/internal/feed"
	"hoodlink/internal/inbox"
	"hoodlink/internal/notifications"
	"hoodlink/internal/observability"
	"hoodlink/internal/server"
)

var version = "dev"

// @title hoodlinkd local API
// @version 1.0
// @description Local view of the inbox, open chats, the feed and the business page kept in sync by hoodlinkd.
// @host localhost:8390
// @BasePath /api
// @schemes http
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.SetupLogger(cfg.LogLevel, cfg.Env)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "hoodlinkd",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Realtime: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	userID := rt.Session.UserID
	hub := notifications.NewHub()

	ib := inbox.New(rt.API, inbox.Options{
		UserID:     userID,
		BusinessID: rt.Session.BusinessID,
		Cache:      rt.Cache,
		CacheTTL:   cfg.InboxCacheTTL,
	})
	ib.Subscribe(hub.PublishInbox)
	if ib.WarmStart(ctx) {
		logger.Info("Inbox warm-started from cache")
	}
	detachInbox := ib.Attach(rt.Realtime)
	defer detachInbox()

	chats := chat.NewRegistry(rt.ChatConfig(rt.Realtime), hub.PublishChat)
	defer chats.CloseAll()

	posts := feed.New(rt.API, userID)
	if err := posts.Load(ctx); err != nil {
		logger.Warn("Feed load failed", "error", err)
	}
	detachFeed := posts.Attach(rt.Realtime, hub.PublishFeed)
	defer detachFeed()

	var page *business.Page
	if !rt.Session.BusinessID.Empty() {
		page = business.NewPage(rt.API, rt.Cache, rt.Session.BusinessID, userID)
		if err := page.Load(ctx); err != nil {
			logger.Warn("Business page load failed", "error", err)
		}
		businessID := rt.Session.BusinessID.String()
		detachPage := page.Attach(rt.Realtime, func(event string) {
			hub.PublishBusiness(businessID, event)
		})
		defer detachPage()
	}

	go func() {
		if err := rt.Realtime.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Realtime connection stopped", "error", err)
		}
	}()

	if err := ib.FetchAll(ctx); err != nil {
		logger.Warn("Initial inbox fetch failed", "error", err)
	}
	if rt.Flags.Enabled(featureflags.InboxResync, userID) {
		go ib.RunResync(ctx, cfg.InboxResyncInterval)
	}

	srv := server.New(server.Options{
		Config:   cfg,
		Session:  rt.Session,
		Inbox:    ib,
		Chats:    chats,
		Feed:     posts,
		Business: page,
		Realtime: rt.Realtime,
		Flags:    rt.Flags,
		Hub:      hub,
		DB:       rt.DB,
		Redis:    rt.Redis,
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down hoodlinkd...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("Tracing shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server stopped", "error", err)
	}
}
