package models

import (
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
)

// JobListing is the summary row produced by a list scrape.
type JobListing struct {
	ID          uint    `json:"id,omitempty"`
	SourceJobID *string `json:"sourceJobId,omitempty" validate:"omitempty,max=100"`
	Title       string  `json:"title" validate:"required,max=300"`
	URL         string  `json:"url" validate:"required,max=1000"`
	Source      Source  `json:"source" validate:"required,max=50"`
	Company     Company `json:"company"`
}

// Validate checks the listing and its embedded company.
func (l *JobListing) Validate() error {
	if err := validateStruct(l); err != nil {
		return err
	}
	if !l.Source.Valid() {
		return fmt.Errorf("%w: unsupported source %q", e.ErrInvalidInput, l.Source)
	}
	return l.Company.Validate()
}

// Key is the identifier used in logs: SourceJobID when present, else URL.
func (l *JobListing) Key() string {
	if l.SourceJobID != nil && *l.SourceJobID != "" {
		return *l.SourceJobID
	}
	return l.URL
}

// JobDetail extends a listing with the full posting. It refers to its
// listing by SourceJobID; the detail's own ID is assigned by the store.
type JobDetail struct {
	ID      uint       `json:"id,omitempty"`
	Listing JobListing `json:"listing" validate:"-"`

	Description string `json:"description" validate:"max=30000"`
	// MinSalary and MaxSalary use 0 for "negotiable".
	MinSalary               int64           `json:"minSalary" validate:"gte=0"`
	MaxSalary               int64           `json:"maxSalary" validate:"gte=0"`
	Location                string          `json:"location" validate:"max=500"`
	LocationLatitude        *float64        `json:"locationLatitude,omitempty"`
	LocationLongitude       *float64        `json:"locationLongitude,omitempty"`
	DueDate                 *time.Time      `json:"dueDate,omitempty"`
	Education               *EducationLevel `json:"education,omitempty"`
	Experience              *int            `json:"experience,omitempty" validate:"omitempty,gte=0"`
	Requirements            *string         `json:"requirements,omitempty" validate:"omitempty,max=10000"`
	PreferredQualifications *string         `json:"preferredQualifications,omitempty" validate:"omitempty,max=10000"`
	Benefits                *string         `json:"benefits,omitempty" validate:"omitempty,max=10000"`

	RequiredSkills []Skill `json:"requiredSkills,omitempty" validate:"dive"`
	Tags           []Tag   `json:"tags,omitempty" validate:"dive"`
}

// SourceJobID returns the parent listing's external id, or "".
func (d *JobDetail) SourceJobID() string {
	if d.Listing.SourceJobID == nil {
		return ""
	}
	return strings.TrimSpace(*d.Listing.SourceJobID)
}

// Validate requires the parent SourceJobID and checks field limits.
func (d *JobDetail) Validate() error {
	if d.SourceJobID() == "" {
		return fmt.Errorf("%w: job detail without source job id", e.ErrInvalidInput)
	}
	if d.Education != nil && !d.Education.Valid() {
		return fmt.Errorf("%w: education level %d", e.ErrInvalidInput, *d.Education)
	}
	return validateStruct(d)
}

// Skill is a technology or competency named by postings.
type Skill struct {
	ID      uint    `json:"id,omitempty"`
	Name    string  `json:"name" validate:"required,max=100"`
	IconURL *string `json:"iconUrl,omitempty" validate:"omitempty,max=1000"`
}

// Tag is a free-form label attached to postings.
type Tag struct {
	ID   uint   `json:"id,omitempty"`
	Name string `json:"name" validate:"required,max=100"`
}
