package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/ingest/resolver"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"go.uber.org/zap"
)

// enrichCompany geocodes the company address when neither the sighting nor
// the stored row has a longitude. Runs outside any transaction.
func (s *IngestService) enrichCompany(ctx context.Context, company *models.Company) error {
	if s.geocoder == nil || company.Longitude != nil {
		return nil
	}
	address := company.Address
	match, err := resolver.New(s.repo).ResolveCompany(ctx, company)
	if err != nil {
		return err
	}
	if match.Found {
		if match.Value.Longitude != nil {
			return nil
		}
		if utils.IsBlank(address) {
			address = match.Value.Address
		}
	}
	if utils.IsBlank(address) {
		return nil
	}

	coords, ok, err := s.geocode(ctx, *address,
		zap.String("company_name", company.Name),
		zap.String("source_company_id", utils.Deref(company.SourceCompanyID)),
	)
	if err != nil || !ok {
		return err
	}
	company.Longitude = utils.Ptr(coords.Longitude)
	company.Latitude = utils.Ptr(coords.Latitude)
	return nil
}

// enrichDetail geocodes the detail location when no longitude was scraped.
func (s *IngestService) enrichDetail(ctx context.Context, detail *models.JobDetail) error {
	if s.geocoder == nil || detail.LocationLongitude != nil || strings.TrimSpace(detail.Location) == "" {
		return nil
	}
	coords, ok, err := s.geocode(ctx, detail.Location,
		zap.String("source_job_id", detail.SourceJobID()),
	)
	if err != nil || !ok {
		return err
	}
	detail.LocationLongitude = utils.Ptr(coords.Longitude)
	detail.LocationLatitude = utils.Ptr(coords.Latitude)
	return nil
}

// geocode applies the configured policy: soft failures are logged and
// reported as ok=false, hard failures are returned.
func (s *IngestService) geocode(ctx context.Context, address string, fields ...zap.Field) (models.Coordinates, bool, error) {
	coords, err := s.geocoder.GetCoordinates(ctx, address)
	if err == nil {
		return coords, true, nil
	}
	fields = append(fields, zap.Error(err), zap.String("address", address))
	if s.policy == GeocodeHard {
		s.logger.Error("Geocoding failed", fields...)
		// Transient failures keep their kind; anything else is a bad address.
		if errors.Is(err, e.ErrTransient) {
			return models.Coordinates{}, false, fmt.Errorf("failed to geocode %q: %w", address, err)
		}
		return models.Coordinates{}, false, fmt.Errorf("%w: failed to geocode %q: %v", e.ErrInvalidInput, address, err)
	}
	s.logger.Warn("Geocoding failed, storing without coordinates", fields...)
	return models.Coordinates{}, false, nil
}
