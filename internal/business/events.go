package business

import (
	"context"

	"hoodlink/internal/cache"
	"hoodlink/internal/models"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// hoursUpdate is the businessHoursUpdated payload.
type hoursUpdate struct {
	BusinessID models.ID              `json:"business_id"`
	Hours      []models.BusinessHours `json:"hours"`
}

// Attach joins the business room and applies its updates. onChange, if set,
// receives the name of each event that changed the page.
func (p *Page) Attach(rt realtime.Subscriber, onChange func(event string)) (detach func()) {
	handle := func(apply func(ctx context.Context, ev socketio.Event) (bool, error)) realtime.Handler {
		return func(ctx context.Context, ev socketio.Event) {
			changed, err := apply(ctx, ev)
			if err != nil {
				p.log.LogError(ctx, ev.Name, p.id.String(), err)
				return
			}
			if changed && onChange != nil {
				onChange(ev.Name)
			}
		}
	}

	undo := []func(){
		rt.On(models.EventNewReview, handle(p.onReview)),
		rt.On(models.EventBusinessHoursUpdated, handle(p.onHours)),
		rt.On(models.EventUpdateBusiness, handle(p.onProfile)),
		rt.On(models.EventNewEvent, handle(p.onEvent)),
		rt.On(models.EventNewBusinessEvent, handle(p.onEvent)),
		rt.On(models.EventEventUpdated, handle(p.onEvent)),
		rt.On(models.EventEventDeleted, handle(p.onEventDeleted)),
		rt.On(models.EventBusinessEventDeleted, handle(p.onEventDeleted)),
		rt.Join(realtime.BusinessPageRoom(p.id)),
	}
	return func() {
		for _, fn := range undo {
			fn()
		}
	}
}

func (p *Page) mine(id models.ID) bool {
	return id.Empty() || id == p.id
}

func (p *Page) onReview(ctx context.Context, ev socketio.Event) (bool, error) {
	var r models.Review
	if err := ev.Decode(&r); err != nil {
		return false, err
	}
	if !p.mine(r.BusinessID) {
		return false, nil
	}
	p.mu.Lock()
	changed := p.addReview(r)
	p.mu.Unlock()
	if changed {
		p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	}
	return changed, nil
}

func (p *Page) onHours(ctx context.Context, ev socketio.Event) (bool, error) {
	var u hoursUpdate
	if err := ev.Decode(&u); err != nil {
		return false, err
	}
	if !p.mine(u.BusinessID) {
		return false, nil
	}
	p.mu.Lock()
	p.business.Hours = u.Hours
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return true, nil
}

func (p *Page) onProfile(ctx context.Context, ev socketio.Event) (bool, error) {
	var b models.Business
	if err := ev.Decode(&b); err != nil {
		return false, err
	}
	if !p.mine(b.ID) {
		return false, nil
	}
	p.mu.Lock()
	p.applyProfileLocked(b)
	p.mu.Unlock()
	p.cache.Invalidate(ctx, cache.BusinessKey(p.id))
	return true, nil
}

func (p *Page) onEvent(_ context.Context, ev socketio.Event) (bool, error) {
	var e models.BusinessEvent
	if err := ev.Decode(&e); err != nil {
		return false, err
	}
	if e.ID.Empty() || !p.mine(e.BusinessID) {
		return false, nil
	}
	if e.BusinessID.Empty() {
		e.BusinessID = p.id
	}
	p.mu.Lock()
	p.upsertEvent(e)
	p.mu.Unlock()
	return true, nil
}

func (p *Page) onEventDeleted(_ context.Context, ev socketio.Event) (bool, error) {
	var d models.DeletedEvent
	if err := ev.Decode(&d); err != nil {
		return false, err
	}
	if !p.mine(d.BusinessID) {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeEvent(d.ID), nil
}
