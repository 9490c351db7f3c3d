// Package models contains the persistence entities for the ingestion store,
// configured to work using GORM as the ORM.
package models

import (
	"time"
)

// Company is a row in companies. SourceCompanyID is nullable; unique
// indexes ignore NULLs on both postgres and sqlite.
type Company struct {
	ID              uint       `gorm:"primaryKey"`
	Name            string     `gorm:"size:200;not null;uniqueIndex"`
	SourceCompanyID *string    `gorm:"size:100;uniqueIndex"`
	Address         *string    `gorm:"size:500"`
	ImageURL        *string    `gorm:"size:1000"`
	Latitude        *float64   `gorm:"type:decimal(10,8)"`
	Longitude       *float64   `gorm:"type:decimal(11,8)"`
	EstablishedDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	JobListings []JobListing `gorm:"constraint:OnDelete:CASCADE"`
}

// JobListing is a row in job_listings.
type JobListing struct {
	ID          uint    `gorm:"primaryKey"`
	SourceJobID *string `gorm:"size:100;uniqueIndex"`
	Title       string  `gorm:"size:300;not null"`
	CompanyID   uint    `gorm:"not null;index"`
	Company     Company
	URL         string `gorm:"size:1000;not null;uniqueIndex"`
	Source      string `gorm:"size:50;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	JobDetail *JobDetail `gorm:"constraint:OnDelete:CASCADE"`
}

// JobDetail is a row in job_details, one per listing.
type JobDetail struct {
	ID                      uint `gorm:"primaryKey"`
	JobListingID            uint `gorm:"not null;uniqueIndex"`
	JobListing              JobListing
	Description             string   `gorm:"type:text;not null"`
	MinSalary               int64    `gorm:"not null"`
	MaxSalary               int64    `gorm:"not null"`
	Location                string   `gorm:"size:500;not null"`
	LocationLatitude        *float64 `gorm:"type:decimal(10,8)"`
	LocationLongitude       *float64 `gorm:"type:decimal(11,8)"`
	DueDate                 *time.Time
	Education               *int
	Experience              *int
	Requirements            *string `gorm:"type:text"`
	PreferredQualifications *string `gorm:"type:text"`
	Benefits                *string `gorm:"type:text"`
	CreatedAt               time.Time
	UpdatedAt               time.Time

	Skills []Skill `gorm:"many2many:job_detail_skills;constraint:OnDelete:CASCADE"`
	Tags   []Tag   `gorm:"many2many:job_detail_tags;constraint:OnDelete:CASCADE"`
}

// Skill is a row in skills. NormalizedName carries the uniqueness so that
// matching is case-insensitive regardless of the column collation.
type Skill struct {
	ID             uint    `gorm:"primaryKey"`
	Name           string  `gorm:"size:100;not null"`
	NormalizedName string  `gorm:"size:100;not null;uniqueIndex"`
	IconURL        *string `gorm:"size:1000"`
}

// Tag is a row in tags.
type Tag struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:100;not null"`
	NormalizedName string `gorm:"size:100;not null;uniqueIndex"`
}

// All lists every entity for AutoMigrate.
func All() []any {
	return []any{&Company{}, &JobListing{}, &JobDetail{}, &Skill{}, &Tag{}}
}
