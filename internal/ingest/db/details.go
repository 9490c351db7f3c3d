package db

import (
	"context"

	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"gorm.io/gorm"
)

// detailColumns are rewritten wholesale on a re-scrape, nulls included.
var detailColumns = []string{
	"description", "min_salary", "max_salary", "location",
	"location_latitude", "location_longitude", "due_date", "education",
	"experience", "requirements", "preferred_qualifications", "benefits",
	"updated_at",
}

// FindDetailByListingID loads the detail of a listing together with the
// listing, its company and the skill and tag sets.
func (r *Repository) FindDetailByListingID(ctx context.Context, listingID uint) (models.Lookup[models.JobDetail], error) {
	var rows []dbm.JobDetail
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Preload("JobListing.Company").
			Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("skills.id") }).
			Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
			Where("job_listing_id = ?", listingID).
			Limit(1).
			Find(&rows).Error
	})
	if err != nil {
		return models.Missing[models.JobDetail](), err
	}
	if len(rows) == 0 {
		return models.Missing[models.JobDetail](), nil
	}
	return models.Found(detailToModel(&rows[0])), nil
}

// CreateDetail inserts the detail for listingID and links the given,
// already persisted, skills and tags.
func (r *Repository) CreateDetail(ctx context.Context, listingID uint, detail *models.JobDetail, skills []models.Skill, tags []models.Tag) error {
	row := detailToEntity(listingID, detail)
	row.ID = 0
	row.Skills = skillRows(skills)
	row.Tags = tagRows(tags)
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Omit("JobListing", "Skills.*", "Tags.*").Create(row).Error
	})
	if err != nil {
		return err
	}
	detail.ID = row.ID
	return nil
}

// ReplaceDetail overwrites every scalar field of detail detailID and swaps
// its skill and tag sets for the given ones.
func (r *Repository) ReplaceDetail(ctx context.Context, detailID, listingID uint, detail *models.JobDetail, skills []models.Skill, tags []models.Tag) error {
	row := detailToEntity(listingID, detail)
	row.ID = detailID
	err := r.run(ctx, func(db *gorm.DB) error {
		if err := db.Model(&dbm.JobDetail{ID: detailID}).Select(detailColumns).Updates(row).Error; err != nil {
			return err
		}
		owner := &dbm.JobDetail{ID: detailID}
		if err := replaceAssociation(db, owner, "Skills", skillRows(skills)); err != nil {
			return err
		}
		return replaceAssociation(db, owner, "Tags", tagRows(tags))
	})
	if err != nil {
		return err
	}
	detail.ID = detailID
	return nil
}

func replaceAssociation[T any](db *gorm.DB, owner *dbm.JobDetail, name string, rows []T) error {
	assoc := db.Model(owner).Association(name)
	if len(rows) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(rows)
}

func (r *Repository) CountDetails(ctx context.Context) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.JobDetail{}).Count(&count).Error
	})
	return count, err
}
