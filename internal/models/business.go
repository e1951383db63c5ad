package models

import "time"

// Business is a business profile.
type Business struct {
	ID          ID              `json:"id"`
	OwnerID     ID              `json:"owner_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Address     string          `json:"address,omitempty"`
	Hours       []BusinessHours `json:"hours,omitempty"`
	Services    []Service       `json:"services,omitempty"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"review_count"`
}

// BusinessHours is the opening window for one weekday.
type BusinessHours struct {
	Day    string `json:"day"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed"`
}

// Service is an owner-editable offering.
type Service struct {
	ID          ID      `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// BusinessEvent is an event hosted by a business.
type BusinessEvent struct {
	ID          ID        `json:"id"`
	BusinessID  ID        `json:"business_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at,omitzero"`
}

// Review is a user review of a business.
type Review struct {
	ID         ID        `json:"id"`
	BusinessID ID        `json:"business_id"`
	UserID     ID        `json:"user_id"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Product is a marketplace listing.
type Product struct {
	ID          ID      `json:"id"`
	SellerID    ID      `json:"seller_id"`
	BusinessID  ID      `json:"business_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Media       []Media `json:"media,omitempty"`
}
