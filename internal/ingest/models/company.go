package models

import (
	"time"
)

// Company is a hiring organisation as seen by one or more sources.
type Company struct {
	// ID is the store's surrogate key; zero until persisted.
	ID uint `json:"id,omitempty"`
	// Name is the display key. It never changes once stored.
	Name string `json:"name" validate:"required,max=200"`
	// SourceCompanyID is "<source>::<externalId>" when the board exposes one.
	SourceCompanyID *string `json:"sourceCompanyId,omitempty" validate:"omitempty,max=100"`
	// Address is free text, geocoded lazily.
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	// ImageURL is the logo URL.
	ImageURL        *string    `json:"imageUrl,omitempty" validate:"omitempty,max=1000"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	EstablishedDate *time.Time `json:"establishedDate,omitempty"`
}

// Validate checks required fields and column limits.
func (c *Company) Validate() error {
	return validateStruct(c)
}

// Coordinates is a geocoded point.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}
