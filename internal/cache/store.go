package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	inboxKeyPrefix    = "hoodlink:inbox:%s"
	businessKeyPrefix = "hoodlink:business:%s"
)

// BusinessTTL bounds how long a cached business profile is served.
const BusinessTTL = 10 * time.Minute

// InboxKey is the snapshot key for one user's conversation lists.
func InboxKey(userID models.ID) string {
	return fmt.Sprintf(inboxKeyPrefix, userID)
}

// BusinessKey is the key for a cached business profile.
func BusinessKey(businessID models.ID) string {
	return fmt.Sprintf(businessKeyPrefix, businessID)
}

// Store reads and writes JSON snapshots. A Store with a nil client is a
// no-op cache: every read misses and every write succeeds.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// GetJSON attempts to get the key and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	span, ctx := observability.StartCacheSpan(ctx, "get")
	defer span.End()

	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		span.SetError(err)
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		observability.CacheErrors.WithLabelValues("decode").Inc()
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	span, ctx := observability.StartCacheSpan(ctx, "set")
	defer span.End()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// Invalidate deletes key.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if s.Enabled() {
		s.rdb.Del(ctx, key)
	}
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result with ttl. Cache write failures are ignored.
func (s *Store) CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache read failed, falling back to source", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = s.SetJSON(ctx, key, dest, ttl)
	return nil
}
