package api

import (
	"context"
	"net/http"

	"hoodlink/internal/models"
)

// Business fetches one business profile.
func (c *Client) Business(ctx context.Context, id models.ID) (*models.Business, error) {
	var out models.Business
	if err := c.getOne(ctx, "/api/businesses/:id", "/api/businesses/"+escape(id), "business", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Businesses lists the business directory.
func (c *Client) Businesses(ctx context.Context) ([]models.Business, error) {
	return getList[models.Business](ctx, c, "/api/businesses", "/api/businesses", nil)
}

// UpdateBusiness replaces the owner-editable profile fields.
func (c *Client) UpdateBusiness(ctx context.Context, b models.Business) (*models.Business, error) {
	var out models.Business
	if err := c.sendOne(ctx, http.MethodPut, "/api/businesses/:id", "/api/businesses/"+escape(b.ID), "business", b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateHours replaces the weekly opening hours.
func (c *Client) UpdateHours(ctx context.Context, id models.ID, hours []models.BusinessHours) ([]models.BusinessHours, error) {
	var out struct {
		Hours []models.BusinessHours `json:"hours"`
	}
	payload := map[string]any{"hours": hours}
	if err := c.sendOne(ctx, http.MethodPut, "/api/businesses/:id/hours", "/api/businesses/"+escape(id)+"/hours", "", payload, &out); err != nil {
		return nil, err
	}
	if out.Hours == nil {
		return hours, nil
	}
	return out.Hours, nil
}

// UpdateServices replaces the list of offered services.
func (c *Client) UpdateServices(ctx context.Context, id models.ID, services []models.Service) ([]models.Service, error) {
	var out struct {
		Services []models.Service `json:"services"`
	}
	payload := map[string]any{"services": services}
	if err := c.sendOne(ctx, http.MethodPut, "/api/businesses/:id/services", "/api/businesses/"+escape(id)+"/services", "", payload, &out); err != nil {
		return nil, err
	}
	if out.Services == nil {
		return services, nil
	}
	return out.Services, nil
}

// BusinessEvents lists a business's events.
func (c *Client) BusinessEvents(ctx context.Context, id models.ID) ([]models.BusinessEvent, error) {
	return getList[models.BusinessEvent](ctx, c, "/api/businesses/:id/events", "/api/businesses/"+escape(id)+"/events", nil)
}

// CreateEvent adds an event to a business.
func (c *Client) CreateEvent(ctx context.Context, ev models.BusinessEvent) (*models.BusinessEvent, error) {
	var out models.BusinessEvent
	if err := c.sendOne(ctx, http.MethodPost, "/api/businesses/:id/events", "/api/businesses/"+escape(ev.BusinessID)+"/events", "event", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent replaces an existing event.
func (c *Client) UpdateEvent(ctx context.Context, ev models.BusinessEvent) (*models.BusinessEvent, error) {
	var out models.BusinessEvent
	path := "/api/businesses/" + escape(ev.BusinessID) + "/events/" + escape(ev.ID)
	if err := c.sendOne(ctx, http.MethodPut, "/api/businesses/:id/events/:eventId", path, "event", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, businessID, eventID models.ID) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  "/api/businesses/:id/events/:eventId",
		path:   "/api/businesses/" + escape(businessID) + "/events/" + escape(eventID),
	})
	return err
}

// Reviews lists reviews for a business.
func (c *Client) Reviews(ctx context.Context, id models.ID) ([]models.Review, error) {
	return getList[models.Review](ctx, c, "/api/businesses/:id/reviews", "/api/businesses/"+escape(id)+"/reviews", nil)
}

// AddReview posts a review.
func (c *Client) AddReview(ctx context.Context, r models.Review) (*models.Review, error) {
	var out models.Review
	if err := c.sendOne(ctx, http.MethodPost, "/api/businesses/:id/reviews", "/api/businesses/"+escape(r.BusinessID)+"/reviews", "review", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Products lists a business's marketplace products.
func (c *Client) Products(ctx context.Context, id models.ID) ([]models.Product, error) {
	return getList[models.Product](ctx, c, "/api/businesses/:id/products", "/api/businesses/"+escape(id)+"/products", nil)
}
