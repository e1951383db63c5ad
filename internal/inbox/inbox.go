// Package inbox aggregates the conversation lists of every chat category and
// keeps their unread counts current from realtime notifications.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"hoodlink/internal/cache"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Category is one inbox tab.
type Category string

const (
	General       Category = "general"
	Direct        Category = "direct"
	Business      Category = "business"
	BusinessSales Category = "business_sales"
)

// Categories lists the tabs in merge precedence order.
var Categories = []Category{General, Direct, Business, BusinessSales}

// ParseCategory maps a tab name onto a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Fetcher loads conversation lists. *api.Client satisfies it.
type Fetcher interface {
	GeneralConversations(ctx context.Context) ([]models.Conversation, error)
	DirectConversations(ctx context.Context) ([]models.Conversation, error)
	BusinessConversations(ctx context.Context) ([]models.Conversation, error)
	BusinessSalesConversations(ctx context.Context, businessID models.ID) ([]models.Conversation, error)
}

// Options configures an Inbox.
type Options struct {
	UserID     models.ID
	BusinessID models.ID
	Cache      *cache.Store
	CacheTTL   time.Duration
}

// Inbox holds the four conversation lists and the current selection.
type Inbox struct {
	fetcher    Fetcher
	userID     models.ID
	businessID models.ID
	cache      *cache.Store
	cacheTTL   time.Duration
	log        *observability.SyncLogger

	mu        sync.RWMutex
	lists     map[Category][]models.Conversation
	selected  string
	fetchedAt time.Time
	emitter   emitter

	refetch singleflight.Group

	subsMu  sync.Mutex
	subs    map[uint64]func(Change)
	nextSub uint64
}

type emitter interface {
	Emit(event string, payload any) error
}

// New creates an empty inbox.
func New(fetcher Fetcher, opts Options) *Inbox {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Inbox{
		fetcher:    fetcher,
		userID:     opts.UserID,
		businessID: opts.BusinessID,
		cache:      opts.Cache,
		cacheTTL:   ttl,
		log:        observability.NewSyncLogger("inbox"),
		lists:      make(map[Category][]models.Conversation, len(Categories)),
		subs:       make(map[uint64]func(Change)),
	}
}

// FetchAll loads every category concurrently and replaces all lists at once.
// If any call fails the previous lists are kept untouched.
func (i *Inbox) FetchAll(ctx context.Context) error {
	span, ctx := observability.StartInternalSpan(ctx, "inbox.FetchAll",
		attribute.Bool("inbox.business_sales", !i.businessID.Empty()))
	defer span.End()

	var general, direct, business, sales []models.Conversation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		general, err = i.fetcher.GeneralConversations(gctx)
		return err
	})
	g.Go(func() (err error) {
		direct, err = i.fetcher.DirectConversations(gctx)
		return err
	})
	g.Go(func() (err error) {
		business, err = i.fetcher.BusinessConversations(gctx)
		return err
	})
	if !i.businessID.Empty() {
		g.Go(func() (err error) {
			sales, err = i.fetcher.BusinessSalesConversations(gctx, i.businessID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		i.log.LogError(ctx, "fetch_all", "", err)
		return err
	}

	lists := map[Category][]models.Conversation{
		General:       withType(general, ""),
		Direct:        withType(direct, models.ConversationDM),
		Business:      withType(business, models.ConversationBusiness),
		BusinessSales: withType(sales, models.ConversationBusiness),
	}
	now := time.Now().UTC()

	i.mu.Lock()
	i.lists = lists
	i.fetchedAt = now
	if i.selected != "" {
		i.resetUnreadLocked(i.selected)
	}
	snap := i.snapshotLocked()
	i.mu.Unlock()

	span.AddAttributes(attribute.Int("inbox.conversations", len(snap.Merged)))
	i.saveSnapshot(ctx, snap)
	i.notify(Change{Kind: ChangeRefreshed, At: now})
	return nil
}

func withType(list []models.Conversation, t models.ConversationType) []models.Conversation {
	out := make([]models.Conversation, len(list))
	copy(out, list)
	if t == "" {
		return out
	}
	for idx := range out {
		if out[idx].Type == "" {
			out[idx].Type = t
		}
	}
	return out
}

// MergeUniqueByRoomID concatenates lists, keeping only the first conversation
// seen for each room id. Input order is preserved.
func MergeUniqueByRoomID(lists ...[]models.Conversation) []models.Conversation {
	seen := make(map[string]struct{})
	var out []models.Conversation
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c.RoomID]; ok {
				continue
			}
			seen[c.RoomID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func (i *Inbox) mergedLocked() []models.Conversation {
	lists := make([][]models.Conversation, 0, len(Categories))
	for _, c := range Categories {
		lists = append(lists, i.lists[c])
	}
	merged := MergeUniqueByRoomID(lists...)
	slices.SortStableFunc(merged, func(a, b models.Conversation) int {
		return b.LastMessageTime.Compare(a.LastMessageTime)
	})
	return merged
}

// Merged returns the deduplicated union of all tabs, newest activity first.
func (i *Inbox) Merged() []models.Conversation {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mergedLocked()
}

// List returns a copy of one tab.
func (i *Inbox) List(c Category) []models.Conversation {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.lists[c])
}

// Conversation looks up a room in the merged view.
func (i *Inbox) Conversation(roomID string) (models.Conversation, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, c := range Categories {
		for _, conv := range i.lists[c] {
			if conv.RoomID == roomID {
				return conv, true
			}
		}
	}
	return models.Conversation{}, false
}

// Selected returns the room id of the open conversation, if any.
func (i *Inbox) Selected() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.selected
}

// Select marks roomID as the open conversation, resets its unread count in
// every tab and tells the server it was read. The emit is not acknowledged;
// its error is returned after the local reset has been applied.
func (i *Inbox) Select(ctx context.Context, roomID string) error {
	i.mu.Lock()
	i.selected = roomID
	i.resetUnreadLocked(roomID)
	em := i.emitter
	i.mu.Unlock()

	i.notify(Change{Kind: ChangeSelected, RoomID: roomID, At: time.Now().UTC()})

	if em == nil {
		return nil
	}
	err := em.Emit(models.EventMarkMessageRead, models.MarkReadRequest{RoomID: roomID, UserID: i.userID})
	if err != nil {
		i.log.LogError(ctx, models.EventMarkMessageRead, roomID, err)
	}
	return err
}

// Deselect clears the open conversation.
func (i *Inbox) Deselect(roomID string) {
	i.mu.Lock()
	if i.selected == roomID {
		i.selected = ""
	}
	i.mu.Unlock()
}

func (i *Inbox) resetUnreadLocked(roomID string) {
	for _, c := range Categories {
		list := i.lists[c]
		for idx := range list {
			if list[idx].RoomID == roomID {
				list[idx].UnreadCount = 0
			}
		}
	}
}

// HandleUnread applies an unread notification. The selected room only has its
// activity time bumped. A room missing from every tab triggers a full refetch;
// concurrent unknown rooms share one refetch.
func (i *Inbox) HandleUnread(ctx context.Context, ev models.UnreadEvent) error {
	if ev.RoomID == "" {
		return models.NewValidationError("unread event without room_id")
	}

	i.mu.Lock()
	found := false
	selected := ev.RoomID == i.selected
	for _, c := range Categories {
		list := i.lists[c]
		for idx := range list {
			if list[idx].RoomID != ev.RoomID {
				continue
			}
			found = true
			if !selected {
				list[idx].UnreadCount++
			}
			list[idx].Touch(ev.CreatedAt, ev.PreviewText())
		}
	}
	i.mu.Unlock()

	if found {
		i.notify(Change{Kind: ChangeUnread, RoomID: ev.RoomID, At: time.Now().UTC()})
		return nil
	}
	return i.Refetch(ctx, "unknown_room")
}

// HandleMessage bumps activity for a known room when a message is delivered.
func (i *Inbox) HandleMessage(msg models.Message) {
	i.mu.Lock()
	found := false
	for _, c := range Categories {
		list := i.lists[c]
		for idx := range list {
			if list[idx].RoomID == msg.RoomID {
				found = true
				list[idx].Touch(msg.CreatedAt, msg.Preview())
			}
		}
	}
	i.mu.Unlock()

	if found {
		i.notify(Change{Kind: ChangeActivity, RoomID: msg.RoomID, At: time.Now().UTC()})
	}
}

// Refetch runs FetchAll, coalescing with any refetch already in flight.
func (i *Inbox) Refetch(ctx context.Context, reason string) error {
	_, err, shared := i.refetch.Do("fetch_all", func() (interface{}, error) {
		observability.InboxRefetchTotal.WithLabelValues(reason).Inc()
		return nil, i.FetchAll(context.WithoutCancel(ctx))
	})
	if shared {
		i.log.LogEvent(ctx, "refetch_coalesced", "")
	}
	return err
}

// TotalUnread sums unread counts over the merged view.
func (i *Inbox) TotalUnread() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	total := 0
	for _, c := range i.mergedLocked() {
		total += c.UnreadCount
	}
	return total
}

// RunResync refetches every interval until ctx is done. The server count is
// authoritative at each fetch, which bounds drift from local increments.
func (i *Inbox) RunResync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := i.Refetch(ctx, "resync"); err != nil && !errors.Is(err, context.Canceled) {
				observability.GlobalLogger.WarnContext(ctx, "Inbox resync failed", slog.String("error", err.Error()))
			}
		}
	}
}
