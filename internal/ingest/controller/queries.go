package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
)

// GetCompanyBySourceID returns the company stored under a
// "<source>::<externalId>" identifier.
func (s *IngestService) GetCompanyBySourceID(ctx context.Context, sourceCompanyID string) (*models.Company, error) {
	id := strings.TrimSpace(sourceCompanyID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty source company id", e.ErrInvalidInput)
	}
	found, err := s.repo.FindCompanyBySourceID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if !found.Found {
		return nil, fmt.Errorf("%w: company %s", e.ErrNotFound, id)
	}
	return &found.Value, nil
}

func (s *IngestService) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%w: empty company name", e.ErrInvalidInput)
	}
	return s.repo.CompanyExistsByName(ctx, strings.TrimSpace(name))
}

func (s *IngestService) GetListingBySourceJobID(ctx context.Context, sourceJobID string) (*models.JobListing, error) {
	id := strings.TrimSpace(sourceJobID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty source job id", e.ErrInvalidInput)
	}
	found, err := s.repo.FindListingBySourceJobID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job listing: %w", err)
	}
	if !found.Found {
		return nil, fmt.Errorf("%w: job listing %s", e.ErrNotFound, id)
	}
	return &found.Value, nil
}

func (s *IngestService) ListingExistsByURL(ctx context.Context, url string) (bool, error) {
	if strings.TrimSpace(url) == "" {
		return false, fmt.Errorf("%w: empty url", e.ErrInvalidInput)
	}
	return s.repo.ListingExistsByURL(ctx, strings.TrimSpace(url))
}

// ListListingsBySource returns up to limit listings of one board; a
// non-positive limit returns all of them.
func (s *IngestService) ListListingsBySource(ctx context.Context, source models.Source, limit int) ([]models.JobListing, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unsupported source %q", e.ErrInvalidInput, source)
	}
	return s.repo.ListListingsBySource(ctx, source, limit)
}

// GetDetailBySourceJobID returns the joined view of a posting: listing,
// company, detail fields, skills and tags.
func (s *IngestService) GetDetailBySourceJobID(ctx context.Context, sourceJobID string) (*models.JobDetail, error) {
	listing, err := s.GetListingBySourceJobID(ctx, sourceJobID)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.FindDetailByListingID(ctx, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job detail: %w", err)
	}
	if !found.Found {
		return nil, fmt.Errorf("%w: job detail for %s", e.ErrNotFound, sourceJobID)
	}
	return &found.Value, nil
}

func (s *IngestService) CountListings(ctx context.Context) (int64, error) {
	return s.repo.CountListings(ctx)
}
