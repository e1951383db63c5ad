package inbox

import (
	"context"
	"log/slog"
	"time"

	"hoodlink/internal/cache"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"
)

// View is a point-in-time copy of the inbox.
type View struct {
	Merged      []models.Conversation              `json:"merged"`
	Lists       map[Category][]models.Conversation `json:"lists"`
	TotalUnread int                                `json:"total_unread"`
	Selected    string                             `json:"selected,omitempty"`
	FetchedAt   time.Time                          `json:"fetched_at,omitzero"`
}

// Snapshot returns a copy of every tab plus the merged view.
func (i *Inbox) Snapshot() View {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snapshotLocked()
}

func (i *Inbox) snapshotLocked() View {
	v := View{
		Merged:    i.mergedLocked(),
		Lists:     make(map[Category][]models.Conversation, len(Categories)),
		Selected:  i.selected,
		FetchedAt: i.fetchedAt,
	}
	for _, c := range Categories {
		v.Lists[c] = withType(i.lists[c], "")
	}
	for _, c := range v.Merged {
		v.TotalUnread += c.UnreadCount
	}
	return v
}

// cachedInbox is what gets stored in redis between runs.
type cachedInbox struct {
	Lists     map[Category][]models.Conversation `json:"lists"`
	FetchedAt time.Time                          `json:"fetched_at"`
}

func (i *Inbox) saveSnapshot(ctx context.Context, v View) {
	if !i.cache.Enabled() || i.userID.Empty() {
		return
	}
	err := i.cache.SetJSON(ctx, cache.InboxKey(i.userID), cachedInbox{Lists: v.Lists, FetchedAt: v.FetchedAt}, i.cacheTTL)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "Failed to cache inbox snapshot",
			slog.String("user_id", i.userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// WarmStart loads the last cached snapshot when nothing has been fetched yet.
// It reports whether a snapshot was applied.
func (i *Inbox) WarmStart(ctx context.Context) bool {
	if !i.cache.Enabled() || i.userID.Empty() {
		return false
	}
	var cached cachedInbox
	ok, err := i.cache.GetJSON(ctx, cache.InboxKey(i.userID), &cached)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "Failed to read cached inbox", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}

	i.mu.Lock()
	if !i.fetchedAt.IsZero() {
		i.mu.Unlock()
		return false
	}
	lists := make(map[Category][]models.Conversation, len(Categories))
	for _, c := range Categories {
		lists[c] = withType(cached.Lists[c], "")
	}
	i.lists = lists
	i.fetchedAt = cached.FetchedAt
	i.mu.Unlock()

	i.log.LogLifecycle(ctx, "warm_start", map[string]interface{}{"fetched_at": cached.FetchedAt})
	i.notify(Change{Kind: ChangeRefreshed, At: time.Now().UTC()})
	return true
}
