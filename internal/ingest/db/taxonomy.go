package db

import (
	"context"

	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindSkillsByNames returns the stored skills whose normalized name is in
// names, in one query. names must already be normalized.
func (r *Repository) FindSkillsByNames(ctx context.Context, names []string) ([]models.Skill, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var rows []dbm.Skill
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("normalized_name IN ?", names).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	skills := make([]models.Skill, 0, len(rows))
	for i := range rows {
		skills = append(skills, skillToModel(&rows[i]))
	}
	return skills, nil
}

// CreateSkills inserts skills in one statement. Names another writer
// inserted first are silently kept as they are, icon included.
func (r *Repository) CreateSkills(ctx context.Context, skills []models.Skill) error {
	if len(skills) == 0 {
		return nil
	}
	rows := make([]dbm.Skill, 0, len(skills))
	for _, s := range skills {
		rows = append(rows, dbm.Skill{
			Name:           utils.CleanText(s.Name),
			NormalizedName: utils.NormalizeName(s.Name),
			IconURL:        s.IconURL,
		})
	}
	return r.run(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *Repository) FindTagsByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var rows []dbm.Tag
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("normalized_name IN ?", names).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(rows))
	for i := range rows {
		tags = append(tags, tagToModel(&rows[i]))
	}
	return tags, nil
}

func (r *Repository) CreateTags(ctx context.Context, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]dbm.Tag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, dbm.Tag{
			Name:           utils.CleanText(t.Name),
			NormalizedName: utils.NormalizeName(t.Name),
		})
	}
	return r.run(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *Repository) CountSkills(ctx context.Context) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.Skill{}).Count(&count).Error
	})
	return count, err
}

func (r *Repository) CountTags(ctx context.Context) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&dbm.Tag{}).Count(&count).Error
	})
	return count, err
}

func skillRows(skills []models.Skill) []dbm.Skill {
	rows := make([]dbm.Skill, 0, len(skills))
	for _, s := range skills {
		rows = append(rows, dbm.Skill{
			ID:             s.ID,
			Name:           s.Name,
			NormalizedName: utils.NormalizeName(s.Name),
			IconURL:        s.IconURL,
		})
	}
	return rows
}

func tagRows(tags []models.Tag) []dbm.Tag {
	rows := make([]dbm.Tag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, dbm.Tag{
			ID:             t.ID,
			Name:           t.Name,
			NormalizedName: utils.NormalizeName(t.Name),
		})
	}
	return rows
}
