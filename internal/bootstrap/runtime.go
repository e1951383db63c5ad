// Package bootstrap builds the shared runtime used by the daemon and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"hoodlink/internal/api"
	"hoodlink/internal/business"
	"hoodlink/internal/cache"
	"hoodlink/internal/chat"
	"hoodlink/internal/config"
	"hoodlink/internal/database"
	"hoodlink/internal/featureflags"
	"hoodlink/internal/feed"
	"hoodlink/internal/inbox"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"
	"hoodlink/internal/realtime"
	"hoodlink/internal/repository"
	"hoodlink/internal/socketio"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	_ inbox.Fetcher = (*api.Client)(nil)
	_ chat.API      = (*api.Client)(nil)
	_ feed.API      = (*api.Client)(nil)
	_ business.API  = (*api.Client)(nil)
)

// Options control runtime initialization behavior.
type Options struct {
	// Realtime builds the connection manager. The CLI leaves it off for
	// commands that only use REST.
	Realtime bool
	// Dial overrides the socket dialer, for tests.
	Dial realtime.DialFunc
}

// Runtime holds every initialized collaborator.
type Runtime struct {
	Config   *config.Config
	Session  *api.Session
	API      *api.Client
	Flags    *featureflags.Manager
	Redis    *redis.Client
	Cache    *cache.Store
	DB       *gorm.DB
	Archive  repository.MessageRepository
	Realtime *realtime.Manager
}

// InitRuntime resolves the session, then connects Redis and the archive when
// configured. Redis and archive failures are logged and leave that store off.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	sess, err := api.NewSession(cfg.AuthToken, models.ID(cfg.UserID), cfg.UserType, models.ID(cfg.BusinessID))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	rt := &Runtime{
		Config:  cfg,
		Session: sess,
		API:     api.NewClient(cfg.APIBaseURL, sess, cfg.HTTPTimeout),
		Flags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		observability.GlobalLogger.Warn("cache disabled", "error", err)
	}
	rt.Redis = rdb
	rt.Cache = cache.NewStore(rdb)

	if cfg.ArchiveDSN != "" && rt.Flags.Enabled(featureflags.Archive, sess.UserID) {
		db, err := database.Connect(cfg.ArchiveDSN)
		if err == nil {
			err = repository.Migrate(db)
		}
		if err != nil {
			observability.GlobalLogger.Warn("message archive disabled", "error", err)
		} else {
			rt.DB = db
			rt.Archive = repository.NewMessageRepository(db)
		}
	}

	if opts.Realtime {
		rt.Realtime = realtime.NewManager(realtime.Config{
			Socket: socketio.Options{
				URL:   cfg.SocketURL,
				Path:  cfg.SocketPath,
				Token: cfg.AuthToken,
			},
			LeaveGrace:           cfg.RoomLeaveGrace,
			MaxReconnectInterval: cfg.ReconnectMaxInterval,
			Dial:                 opts.Dial,
		})
	}
	return rt, nil
}

// ChatConfig is the session configuration for this runtime.
func (r *Runtime) ChatConfig(sub realtime.Subscriber) chat.Config {
	return chat.Config{
		API:               r.API,
		Realtime:          sub,
		Archive:           r.Archive,
		TypingDebounce:    r.Config.TypingDebounce,
		DisableEchoDedupe: !r.Flags.Enabled(featureflags.EchoDedupe, r.Session.UserID),
	}
}

// Close releases the stores.
func (r *Runtime) Close() {
	if r.Realtime != nil {
		r.Realtime.Stop()
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			observability.GlobalLogger.Warn("error closing redis", "error", err)
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				observability.GlobalLogger.Warn("error closing archive", "error", cerr)
			}
		}
	}
}
