package models

import (
	"time"

	"github.com/google/uuid"
)

// ScrapingResult is what a scraper adapter sends back for one command.
// Exactly one payload is populated, matching CommandType.
type ScrapingResult struct {
	ID           uuid.UUID         `json:"id"`
	CommandID    uuid.UUID         `json:"commandId"`
	CommandType  CommandType       `json:"commandType"`
	Source       Source            `json:"source"`
	Success      bool              `json:"success"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      time.Time         `json:"endTime"`
	JobListings  []JobListing      `json:"jobListings,omitempty"`
	JobDetail    *JobDetail        `json:"jobDetail,omitempty"`
	Company      *Company          `json:"company,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Duration is the time the scrape took.
func (r *ScrapingResult) Duration() time.Duration {
	if r.EndTime.Before(r.StartTime) {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Outcome is what the engine did with one entity.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Lookup is the result of a keyed read: either a value or an explicit miss.
type Lookup[T any] struct {
	Value T
	Found bool
}

// Found wraps v as a hit.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Found: true}
}

// Missing is a lookup that matched nothing.
func Missing[T any]() Lookup[T] {
	return Lookup[T]{}
}
