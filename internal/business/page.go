// Package business keeps a business page and the business directory in sync
// with REST snapshots, owner edits and realtime updates.
package business

import (
	"context"
	"slices"
	"sync"

	"hoodlink/internal/cache"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"golang.org/x/sync/errgroup"
)

// API is the REST surface for businesses. *api.Client satisfies it.
type API interface {
	Business(ctx context.Context, id models.ID) (*models.Business, error)
	Businesses(ctx context.Context) ([]models.Business, error)
	UpdateBusiness(ctx context.Context, b models.Business) (*models.Business, error)
	UpdateHours(ctx context.Context, id models.ID, hours []models.BusinessHours) ([]models.BusinessHours, error)
	UpdateServices(ctx context.Context, id models.ID, services []models.Service) ([]models.Service, error)
	BusinessEvents(ctx context.Context, id models.ID) ([]models.BusinessEvent, error)
	CreateEvent(ctx context.Context, ev models.BusinessEvent) (*models.BusinessEvent, error)
	UpdateEvent(ctx context.Context, ev models.BusinessEvent) (*models.BusinessEvent, error)
	DeleteEvent(ctx context.Context, businessID, eventID models.ID) error
	Reviews(ctx context.Context, id models.ID) ([]models.Review, error)
	AddReview(ctx context.Context, r models.Review) (*models.Review, error)
	Products(ctx context.Context, id models.ID) ([]models.Product, error)
}

// PageView is a copy of the page state.
type PageView struct {
	Business models.Business        `json:"business"`
	Events   []models.BusinessEvent `json:"events"`
	Reviews  []models.Review        `json:"reviews"`
	Products []models.Product       `json:"products"`
	IsOwner  bool                   `json:"is_owner"`
}

// Page is the state of one business page.
type Page struct {
	api    API
	cache  *cache.Store
	id     models.ID
	userID models.ID
	log    *observability.SyncLogger

	mu       sync.RWMutex
	business models.Business
	events   []models.BusinessEvent
	reviews  []models.Review
	products []models.Product
}

// NewPage creates the page for businessID viewed by userID. store may be nil.
func NewPage(client API, store *cache.Store, businessID, userID models.ID) *Page {
	return &Page{
		api:    client,
		cache:  store,
		id:     businessID,
		userID: userID,
		log:    observability.NewSyncLogger("business"),
	}
}

// Load fetches the profile through the cache, then events, reviews and
// products in parallel.
func (p *Page) Load(ctx context.Context) error {
	var b models.Business
	err := p.cache.CacheAside(ctx, cache.BusinessKey(p.id), &b, cache.BusinessTTL, func() error {
		got, err := p.api.Business(ctx, p.id)
		if err != nil {
			return err
		}
		b = *got
		return nil
	})
	if err != nil {
		p.log.LogError(ctx, "load_business", p.id.String(), err)
		return err
	}

	var events []models.BusinessEvent
	var reviews []models.Review
	var products []models.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = p.api.BusinessEvents(gctx, p.id)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = p.api.Reviews(gctx, p.id)
		return err
	})
	g.Go(func() (err error) {
		products, err = p.api.Products(gctx, p.id)
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.LogError(ctx, "load_business_details", p.id.String(), err)
		return err
	}

	p.mu.Lock()
	p.business = b
	p.events = sortEvents(events)
	p.reviews = reviews
	p.products = products
	p.mu.Unlock()
	return nil
}

// View returns a copy of the page.
func (p *Page) View() PageView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := p.business
	b.Hours = slices.Clone(b.Hours)
	b.Services = slices.Clone(b.Services)
	return PageView{
		Business: b,
		Events:   slices.Clone(p.events),
		Reviews:  slices.Clone(p.reviews),
		Products: slices.Clone(p.products),
		IsOwner:  p.isOwnerLocked(),
	}
}

// IsOwner reports whether the viewing user owns the business.
func (p *Page) IsOwner() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isOwnerLocked()
}

func (p *Page) isOwnerLocked() bool {
	return !p.userID.Empty() && p.business.OwnerID == p.userID
}

func (p *Page) requireOwner() error {
	if !p.IsOwner() {
		return models.NewUnauthorizedError("only the business owner can edit this page")
	}
	return nil
}

func sortEvents(events []models.BusinessEvent) []models.BusinessEvent {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b models.BusinessEvent) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return out
}

// upsertEvent replaces the event with the same id or adds it.
func (p *Page) upsertEvent(ev models.BusinessEvent) {
	idx := slices.IndexFunc(p.events, func(e models.BusinessEvent) bool { return e.ID == ev.ID })
	if idx >= 0 {
		p.events[idx] = ev
	} else {
		p.events = append(p.events, ev)
	}
	p.events = sortEvents(p.events)
}

func (p *Page) removeEvent(id models.ID) bool {
	idx := slices.IndexFunc(p.events, func(e models.BusinessEvent) bool { return e.ID == id })
	if idx < 0 {
		return false
	}
	p.events = slices.Delete(p.events, idx, idx+1)
	return true
}

// addReview inserts r once and keeps the aggregate rating current.
func (p *Page) addReview(r models.Review) bool {
	if slices.ContainsFunc(p.reviews, func(x models.Review) bool { return x.ID == r.ID }) {
		return false
	}
	p.reviews = append([]models.Review{r}, p.reviews...)
	n := float64(p.business.ReviewCount)
	p.business.Rating = (p.business.Rating*n + float64(r.Rating)) / (n + 1)
	p.business.ReviewCount++
	return true
}
