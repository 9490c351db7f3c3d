package db

import (
	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
)

func companyToEntity(c *models.Company) *dbm.Company {
	return &dbm.Company{
		ID:              c.ID,
		Name:            c.Name,
		SourceCompanyID: utils.TrimToNil(c.SourceCompanyID),
		Address:         c.Address,
		ImageURL:        c.ImageURL,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		EstablishedDate: c.EstablishedDate,
	}
}

func companyToModel(row *dbm.Company) models.Company {
	return models.Company{
		ID:              row.ID,
		Name:            row.Name,
		SourceCompanyID: row.SourceCompanyID,
		Address:         row.Address,
		ImageURL:        row.ImageURL,
		Latitude:        row.Latitude,
		Longitude:       row.Longitude,
		EstablishedDate: row.EstablishedDate,
	}
}

func listingToModel(row *dbm.JobListing) models.JobListing {
	return models.JobListing{
		ID:          row.ID,
		SourceJobID: row.SourceJobID,
		Title:       row.Title,
		URL:         row.URL,
		Source:      models.Source(row.Source),
		Company:     companyToModel(&row.Company),
	}
}

func detailToEntity(listingID uint, d *models.JobDetail) *dbm.JobDetail {
	row := &dbm.JobDetail{
		ID:                      d.ID,
		JobListingID:            listingID,
		Description:             d.Description,
		MinSalary:               d.MinSalary,
		MaxSalary:               d.MaxSalary,
		Location:                d.Location,
		LocationLatitude:        d.LocationLatitude,
		LocationLongitude:       d.LocationLongitude,
		DueDate:                 d.DueDate,
		Experience:              d.Experience,
		Requirements:            d.Requirements,
		PreferredQualifications: d.PreferredQualifications,
		Benefits:                d.Benefits,
	}
	if d.Education != nil {
		row.Education = utils.Ptr(int(*d.Education))
	}
	return row
}

func detailToModel(row *dbm.JobDetail) models.JobDetail {
	d := models.JobDetail{
		ID:                      row.ID,
		Listing:                 listingToModel(&row.JobListing),
		Description:             row.Description,
		MinSalary:               row.MinSalary,
		MaxSalary:               row.MaxSalary,
		Location:                row.Location,
		LocationLatitude:        row.LocationLatitude,
		LocationLongitude:       row.LocationLongitude,
		DueDate:                 row.DueDate,
		Experience:              row.Experience,
		Requirements:            row.Requirements,
		PreferredQualifications: row.PreferredQualifications,
		Benefits:                row.Benefits,
	}
	if row.Education != nil {
		d.Education = utils.Ptr(models.EducationLevel(*row.Education))
	}
	for i := range row.Skills {
		d.RequiredSkills = append(d.RequiredSkills, skillToModel(&row.Skills[i]))
	}
	for i := range row.Tags {
		d.Tags = append(d.Tags, tagToModel(&row.Tags[i]))
	}
	return d
}

func skillToModel(row *dbm.Skill) models.Skill {
	return models.Skill{ID: row.ID, Name: row.Name, IconURL: row.IconURL}
}

func tagToModel(row *dbm.Tag) models.Tag {
	return models.Tag{ID: row.ID, Name: row.Name}
}
