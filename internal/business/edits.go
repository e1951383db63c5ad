package business

import (
	"context"

	"hoodlink/internal/cache"
	"hoodlink/internal/models"
)

// UpdateProfile saves the owner-editable profile fields.
func (p *Page) UpdateProfile(ctx context.Context, b models.Business) (models.Business, error) {
	if err := p.requireOwner(); err != nil {
		return models.Business{}, err
	}
	b.ID = p.id
	saved, err := p.api.UpdateBusiness(ctx, b)
	if err != nil {
		p.log.LogError(ctx, "update_business", p.id.String(), err)
		return models.Business{}, err
	}
	p.mu.Lock()
	p.applyProfileLocked(*saved)
	out := p.business
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return out, nil
}

// applyProfileLocked replaces the profile, keeping hours, services and the
// rating when the update omits them.
func (p *Page) applyProfileLocked(b models.Business) {
	if b.ID.Empty() {
		b.ID = p.id
	}
	if b.OwnerID.Empty() {
		b.OwnerID = p.business.OwnerID
	}
	if b.Hours == nil {
		b.Hours = p.business.Hours
	}
	if b.Services == nil {
		b.Services = p.business.Services
	}
	if b.ReviewCount == 0 {
		b.Rating = p.business.Rating
		b.ReviewCount = p.business.ReviewCount
	}
	p.business = b
}

// UpdateHours replaces the opening hours.
func (p *Page) UpdateHours(ctx context.Context, hours []models.BusinessHours) ([]models.BusinessHours, error) {
	if err := p.requireOwner(); err != nil {
		return nil, err
	}
	saved, err := p.api.UpdateHours(ctx, p.id, hours)
	if err != nil {
		p.log.LogError(ctx, "update_hours", p.id.String(), err)
		return nil, err
	}
	p.mu.Lock()
	p.business.Hours = saved
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return saved, nil
}

// UpdateServices replaces the offered services.
func (p *Page) UpdateServices(ctx context.Context, services []models.Service) ([]models.Service, error) {
	if err := p.requireOwner(); err != nil {
		return nil, err
	}
	saved, err := p.api.UpdateServices(ctx, p.id, services)
	if err != nil {
		p.log.LogError(ctx, "update_services", p.id.String(), err)
		return nil, err
	}
	p.mu.Lock()
	p.business.Services = saved
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return saved, nil
}

// CreateEvent adds an event.
func (p *Page) CreateEvent(ctx context.Context, ev models.BusinessEvent) (models.BusinessEvent, error) {
	if err := p.requireOwner(); err != nil {
		return models.BusinessEvent{}, err
	}
	if ev.Title == "" {
		return models.BusinessEvent{}, models.NewValidationError("event title is required")
	}
	ev.BusinessID = p.id
	saved, err := p.api.CreateEvent(ctx, ev)
	if err != nil {
		p.log.LogError(ctx, "create_event", p.id.String(), err)
		return models.BusinessEvent{}, err
	}
	if saved.BusinessID.Empty() {
		saved.BusinessID = p.id
	}
	p.mu.Lock()
	p.upsertEvent(*saved)
	p.mu.Unlock()
	return *saved, nil
}

// UpdateEvent replaces an event.
func (p *Page) UpdateEvent(ctx context.Context, ev models.BusinessEvent) (models.BusinessEvent, error) {
	if err := p.requireOwner(); err != nil {
		return models.BusinessEvent{}, err
	}
	ev.BusinessID = p.id
	saved, err := p.api.UpdateEvent(ctx, ev)
	if err != nil {
		p.log.LogError(ctx, "update_event", p.id.String(), err)
		return models.BusinessEvent{}, err
	}
	out := *saved
	if out.ID.Empty() {
		out = ev
	}
	if out.BusinessID.Empty() {
		out.BusinessID = p.id
	}
	p.mu.Lock()
	p.upsertEvent(out)
	p.mu.Unlock()
	return out, nil
}

// DeleteEvent removes an event.
func (p *Page) DeleteEvent(ctx context.Context, eventID models.ID) error {
	if err := p.requireOwner(); err != nil {
		return err
	}
	if err := p.api.DeleteEvent(ctx, p.id, eventID); err != nil {
		p.log.LogError(ctx, "delete_event", p.id.String(), err)
		return err
	}
	p.mu.Lock()
	p.removeEvent(eventID)
	p.mu.Unlock()
	return nil
}

// AddReview posts a review by the viewing user. Owners cannot review their
// own business.
func (p *Page) AddReview(ctx context.Context, rating int, text string) (models.Review, error) {
	if rating < 1 || rating > 5 {
		return models.Review{}, models.NewValidationError("rating must be between 1 and 5")
	}
	if p.IsOwner() {
		return models.Review{}, models.NewValidationError("owners cannot review their own business")
	}
	saved, err := p.api.AddReview(ctx, models.Review{BusinessID: p.id, UserID: p.userID, Rating: rating, Text: text})
	if err != nil {
		p.log.LogError(ctx, "add_review", p.id.String(), err)
		return models.Review{}, err
	}
	out := *saved
	if out.Rating == 0 {
		out.Rating = rating
	}
	if out.BusinessID.Empty() {
		out.BusinessID = p.id
	}
	p.mu.Lock()
	p.addReview(out)
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return out, nil
}
