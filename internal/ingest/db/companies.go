package db

import (
	"context"
	"fmt"

	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// companyMutableColumns are the columns a later sighting may fill in.
// name is deliberately absent.
var companyMutableColumns = []string{
	"source_company_id", "address", "image_url", "latitude", "longitude", "established_date", "updated_at",
}

func (r *Repository) FindCompanyBySourceID(ctx context.Context, sourceCompanyID string) (models.Lookup[models.Company], error) {
	return r.findCompany(ctx, "source_company_id = ?", sourceCompanyID)
}

func (r *Repository) FindCompanyByName(ctx context.Context, name string) (models.Lookup[models.Company], error) {
	return r.findCompany(ctx, "name = ?", name)
}

func (r *Repository) findCompany(ctx context.Context, query string, arg any) (models.Lookup[models.Company], error) {
	var rows []dbm.Company
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where(query, arg).Limit(1).Find(&rows).Error
	})
	if err != nil {
		return models.Missing[models.Company](), err
	}
	if len(rows) == 0 {
		return models.Missing[models.Company](), nil
	}
	return models.Found(companyToModel(&rows[0])), nil
}

func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var row dbm.Company
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.First(&row, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	company := companyToModel(&row)
	return &company, nil
}

// CreateCompany inserts company and sets its ID. A clash on name or
// source_company_id leaves the transaction usable and returns
// ErrDuplicateEntity, so the caller can resolve again.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := companyToEntity(company)
	row.ID = 0
	var inserted int64
	err := r.run(ctx, func(db *gorm.DB) error {
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		inserted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if inserted == 0 {
		return fmt.Errorf("%w: company %q", e.ErrDuplicateEntity, company.Name)
	}
	company.ID = row.ID
	return nil
}

// UpdateCompany writes the mutable columns of an existing company.
func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	row := companyToEntity(company)
	var affected int64
	err := r.run(ctx, func(db *gorm.DB) error {
		result := db.Model(&dbm.Company{}).
			Where("id = ?", company.ID).
			Select(companyMutableColumns).
			Updates(row)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.Company{}).
			Where("name = ?", name).
			Limit(1).
			Count(&count).Error
	})
	return count > 0, err
}

func (r *Repository) CountCompanies(ctx context.Context) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.Company{}).Count(&count).Error
	})
	return count, err
}
