package db

import (
	"context"

	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"gorm.io/gorm"
)

func (r *Repository) FindListingBySourceJobID(ctx context.Context, sourceJobID string) (models.Lookup[models.JobListing], error) {
	return r.findListing(ctx, "source_job_id = ?", sourceJobID)
}

func (r *Repository) FindListingByURL(ctx context.Context, url string) (models.Lookup[models.JobListing], error) {
	return r.findListing(ctx, "url = ?", url)
}

func (r *Repository) findListing(ctx context.Context, query string, arg any) (models.Lookup[models.JobListing], error) {
	var rows []dbm.JobListing
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Preload("Company").Where(query, arg).Limit(1).Find(&rows).Error
	})
	if err != nil {
		return models.Missing[models.JobListing](), err
	}
	if len(rows) == 0 {
		return models.Missing[models.JobListing](), nil
	}
	return models.Found(listingToModel(&rows[0])), nil
}

// CreateListing inserts listing under companyID. The url and source_job_id
// unique indexes reject duplicates with ErrDuplicateEntity.
func (r *Repository) CreateListing(ctx context.Context, listing *models.JobListing, companyID uint) error {
	row := &dbm.JobListing{
		SourceJobID: utils.TrimToNil(listing.SourceJobID),
		Title:       listing.Title,
		CompanyID:   companyID,
		URL:         listing.URL,
		Source:      string(listing.Source),
	}
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Omit("Company", "JobDetail").Create(row).Error
	})
	if err != nil {
		return err
	}
	listing.ID = row.ID
	listing.Company.ID = companyID
	return nil
}

func (r *Repository) ListingExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.JobListing{}).
			Where("url = ?", url).
			Limit(1).
			Count(&count).Error
	})
	return count > 0, err
}

// ListListingsBySource returns listings of one board, oldest first.
// A non-positive limit returns every row.
func (r *Repository) ListListingsBySource(ctx context.Context, source models.Source, limit int) ([]models.JobListing, error) {
	var rows []dbm.JobListing
	err := r.run(ctx, func(db *gorm.DB) error {
		q := db.Preload("Company").Where("source = ?", string(source)).Order("id")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	listings := make([]models.JobListing, 0, len(rows))
	for i := range rows {
		listings = append(listings, listingToModel(&rows[i]))
	}
	return listings, nil
}

func (r *Repository) CountListings(ctx context.Context) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.JobListing{}).Count(&count).Error
	})
	return count, err
}
