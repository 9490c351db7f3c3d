// Package controller implements the reconciliation engine: it merges scraped
// companies, listings and details into the store and publishes what changed.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gartstein/jobscraper/internal/ingest/db"
	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/events"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/ingest/resolver"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, key string, payload any)
}

// Geocoder turns free-text addresses into coordinates.
type Geocoder interface {
	GetCoordinates(ctx context.Context, address string) (models.Coordinates, error)
}

// Store is the set of store operations one unit of work runs against.
type Store interface {
	resolver.Store
	CreateCompany(ctx context.Context, company *models.Company) error
	UpdateCompany(ctx context.Context, company *models.Company) error
	CreateListing(ctx context.Context, listing *models.JobListing, companyID uint) error
	FindDetailByListingID(ctx context.Context, listingID uint) (models.Lookup[models.JobDetail], error)
	CreateDetail(ctx context.Context, listingID uint, detail *models.JobDetail, skills []models.Skill, tags []models.Tag) error
	ReplaceDetail(ctx context.Context, detailID, listingID uint, detail *models.JobDetail, skills []models.Skill, tags []models.Tag) error
	CreateSkills(ctx context.Context, skills []models.Skill) error
	CreateTags(ctx context.Context, tags []models.Tag) error
}

// Repository defines the storage interface the service depends on.
type Repository interface {
	Store
	CompanyExistsByName(ctx context.Context, name string) (bool, error)
	ListingExistsByURL(ctx context.Context, url string) (bool, error)
	ListListingsBySource(ctx context.Context, source models.Source, limit int) ([]models.JobListing, error)
	CountListings(ctx context.Context) (int64, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// GeocodePolicy decides what a failed geocoding lookup does to the item
// being ingested.
type GeocodePolicy string

const (
	// GeocodeSoft logs the failure and stores the item without coordinates.
	GeocodeSoft GeocodePolicy = "soft"
	// GeocodeHard fails the item with the geocoder's error.
	GeocodeHard GeocodePolicy = "hard"
)

func ParseGeocodePolicy(s string) (GeocodePolicy, error) {
	switch p := GeocodePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case GeocodeSoft, GeocodeHard:
		return p, nil
	case "":
		return GeocodeSoft, nil
	}
	return "", fmt.Errorf("%w: geocode policy %q", e.ErrInvalidInput, s)
}

// coordinateEpsilon matches the scale of the coordinate columns, so values
// that only differ by storage rounding compare equal.
const coordinateEpsilon = 1e-8

// IngestService reconciles scraped entities with the store.
type IngestService struct {
	repo     Repository
	producer EventProducer
	geocoder Geocoder
	policy   GeocodePolicy
	logger   *zap.Logger
}

// NewIngestService wires the engine. geocoder may be nil, in which case
// coordinates are only stored when the scraper supplied them.
func NewIngestService(repo Repository, producer EventProducer, geocoder Geocoder, policy GeocodePolicy, logger *zap.Logger) *IngestService {
	if policy == "" {
		policy = GeocodeSoft
	}
	return &IngestService{
		repo:     repo,
		producer: producer,
		geocoder: geocoder,
		policy:   policy,
		logger:   logger.Named("ingest_service"),
	}
}

// companyChange is a company write that committed and should be announced.
type companyChange struct {
	company models.Company
	outcome models.Outcome
}

// UpsertCompany inserts a company on first sighting and otherwise fills in
// attributes the stored row lacks. Name never changes once stored, and a
// sighting that adds nothing causes no write.
func (s *IngestService) UpsertCompany(ctx context.Context, company models.Company) (*models.Company, models.Outcome, error) {
	normalizeCompany(&company)
	if err := company.Validate(); err != nil {
		return nil, "", err
	}
	if err := s.enrichCompany(ctx, &company); err != nil {
		return nil, "", err
	}

	var change companyChange
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		stored, outcome, err := s.upsertCompany(ctx, tx, &company)
		change = companyChange{company: stored, outcome: outcome}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to upsert company",
			zap.Error(err),
			zap.String("company_name", company.Name),
			zap.String("source_company_id", utils.Deref(company.SourceCompanyID)),
		)
		return nil, "", err
	}
	s.publishCompany(change)
	return &change.company, change.outcome, nil
}

// upsertCompany resolves and merges inside a transaction. A create that
// loses a race on a unique key resolves again and merges into the winner.
func (s *IngestService) upsertCompany(ctx context.Context, store Store, company *models.Company) (models.Company, models.Outcome, error) {
	r := resolver.New(store)
	for attempt := 0; ; attempt++ {
		match, err := r.ResolveCompany(ctx, company)
		if err != nil {
			return models.Company{}, "", err
		}
		if match.Found {
			merged, changed := mergeCompany(match.Value, company)
			if !changed {
				return match.Value, models.OutcomeUnchanged, nil
			}
			if err := store.UpdateCompany(ctx, &merged); err != nil {
				return models.Company{}, "", fmt.Errorf("failed to update company: %w", err)
			}
			return merged, models.OutcomeUpdated, nil
		}

		created := *company
		created.ID = 0
		err = store.CreateCompany(ctx, &created)
		if err == nil {
			return created, models.OutcomeCreated, nil
		}
		if !errors.Is(err, e.ErrDuplicateEntity) || attempt > 0 {
			return models.Company{}, "", fmt.Errorf("failed to create company: %w", err)
		}
		s.logger.Debug("Company created concurrently, resolving again",
			zap.String("company_name", company.Name),
		)
	}
}

// normalizeCompany cleans the name and drops a blank SourceCompanyID, so
// what is stored matches what the resolver looks up.
func normalizeCompany(c *models.Company) {
	c.Name = utils.CleanText(c.Name)
	c.SourceCompanyID = utils.TrimToNil(c.SourceCompanyID)
}

// mergeCompany applies fill-missing-don't-clobber: an incoming attribute
// wins only when it is present and differs from the stored one.
func mergeCompany(stored models.Company, incoming *models.Company) (models.Company, bool) {
	merged := stored
	changed := false

	mergeString := func(dst **string, src *string) {
		if utils.IsBlank(src) {
			return
		}
		v := strings.TrimSpace(*src)
		if *dst != nil && **dst == v {
			return
		}
		*dst = &v
		changed = true
	}
	mergeFloat := func(dst **float64, src *float64) {
		if src == nil {
			return
		}
		if *dst != nil && math.Abs(**dst-*src) < coordinateEpsilon {
			return
		}
		v := *src
		*dst = &v
		changed = true
	}

	mergeString(&merged.SourceCompanyID, incoming.SourceCompanyID)
	mergeString(&merged.ImageURL, incoming.ImageURL)
	mergeString(&merged.Address, incoming.Address)
	mergeFloat(&merged.Latitude, incoming.Latitude)
	mergeFloat(&merged.Longitude, incoming.Longitude)
	if incoming.EstablishedDate != nil &&
		(merged.EstablishedDate == nil || !merged.EstablishedDate.Equal(*incoming.EstablishedDate)) {
		d := *incoming.EstablishedDate
		merged.EstablishedDate = &d
		changed = true
	}
	return merged, changed
}

// CreateListing stores a new listing, creating or merging its company first.
// A listing whose SourceJobID or URL is already stored fails with
// ErrDuplicateEntity; nothing is overwritten.
func (s *IngestService) CreateListing(ctx context.Context, listing models.JobListing) (*models.JobListing, error) {
	listing.Title = utils.CleanText(listing.Title)
	listing.URL = strings.TrimSpace(listing.URL)
	listing.SourceJobID = utils.TrimToNil(listing.SourceJobID)
	normalizeCompany(&listing.Company)
	if err := listing.Validate(); err != nil {
		return nil, err
	}
	if err := s.enrichCompany(ctx, &listing.Company); err != nil {
		return nil, err
	}

	// The transaction may be retried, so listing stays as scraped until it commits.
	var (
		stored models.JobListing
		change companyChange
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		match, err := resolver.New(tx).ResolveListing(ctx, &listing)
		if err != nil {
			return err
		}
		if match.Found {
			return fmt.Errorf("%w: job listing %s already stored (matched by %s)", e.ErrDuplicateEntity, listing.Key(), match.By)
		}

		company, outcome, err := s.upsertCompany(ctx, tx, &listing.Company)
		if err != nil {
			return err
		}
		change = companyChange{company: company, outcome: outcome}

		row := listing
		if err := tx.CreateListing(ctx, &row, company.ID); err != nil {
			return fmt.Errorf("failed to create job listing: %w", err)
		}
		row.Company = company
		stored = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCompany(change)
	s.produce(events.ListingCreated, utils.Deref(stored.SourceJobID), stored)
	return &stored, nil
}

// UpsertDetail inserts the detail of an existing listing, or replaces every
// field and the skill and tag sets of the stored one. A detail whose
// listing is not stored fails with ErrNotFound and writes nothing.
func (s *IngestService) UpsertDetail(ctx context.Context, detail models.JobDetail) (*models.JobDetail, models.Outcome, error) {
	detail.Listing.SourceJobID = utils.TrimToNil(detail.Listing.SourceJobID)
	if err := detail.Validate(); err != nil {
		return nil, "", err
	}
	sourceJobID := detail.SourceJobID()

	// Fail fast before calling out to the geocoder.
	if _, err := resolver.New(s.repo).ResolveDetailParent(ctx, &detail); err != nil {
		return nil, "", err
	}
	if err := s.enrichDetail(ctx, &detail); err != nil {
		return nil, "", err
	}
	normalizeCompany(&detail.Listing.Company)
	mergeDetailCompany := detail.Listing.Company.SourceCompanyID != nil && detail.Listing.Company.Name != ""
	if mergeDetailCompany {
		if err := s.enrichCompany(ctx, &detail.Listing.Company); err != nil {
			return nil, "", err
		}
	}

	// The transaction may be retried, so detail stays as scraped until it commits.
	var (
		outcome models.Outcome
		change  companyChange
		parent  models.JobListing
		skills  []models.Skill
		tags    []models.Tag
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		parent, err = resolver.New(tx).ResolveDetailParent(ctx, &detail)
		if err != nil {
			return err
		}
		if mergeDetailCompany {
			company, companyOutcome, err := s.upsertCompany(ctx, tx, &detail.Listing.Company)
			if err != nil {
				return err
			}
			change = companyChange{company: company, outcome: companyOutcome}
		}

		skills, err = s.getOrCreateSkills(ctx, tx, detail.RequiredSkills)
		if err != nil {
			return err
		}
		tags, err = s.getOrCreateTags(ctx, tx, detail.Tags)
		if err != nil {
			return err
		}

		existing, err := tx.FindDetailByListingID(ctx, parent.ID)
		if err != nil {
			return err
		}
		if existing.Found {
			if err := tx.ReplaceDetail(ctx, existing.Value.ID, parent.ID, &detail, skills, tags); err != nil {
				return fmt.Errorf("failed to replace job detail: %w", err)
			}
			outcome = models.OutcomeUpdated
		} else {
			if err := tx.CreateDetail(ctx, parent.ID, &detail, skills, tags); err != nil {
				return fmt.Errorf("failed to create job detail: %w", err)
			}
			outcome = models.OutcomeCreated
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to upsert job detail",
			zap.Error(err),
			zap.String("source_job_id", sourceJobID),
		)
		return nil, "", err
	}
	detail.Listing = parent
	detail.RequiredSkills = skills
	detail.Tags = tags

	s.publishCompany(change)
	if outcome == models.OutcomeCreated {
		s.produce(events.DetailCreated, sourceJobID, detail)
	} else {
		s.produce(events.DetailUpdated, sourceJobID, detail)
	}
	return &detail, outcome, nil
}

// GetOrCreateSkills returns one stored skill per distinct name, matching
// case-insensitively and creating only the names not yet stored.
func (s *IngestService) GetOrCreateSkills(ctx context.Context, skills []models.Skill) ([]models.Skill, error) {
	var out []models.Skill
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		out, err = s.getOrCreateSkills(ctx, tx, skills)
		return err
	})
	return out, err
}

func (s *IngestService) GetOrCreateTags(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	var out []models.Tag
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		out, err = s.getOrCreateTags(ctx, tx, tags)
		return err
	})
	return out, err
}

func (s *IngestService) getOrCreateSkills(ctx context.Context, store Store, skills []models.Skill) ([]models.Skill, error) {
	p, err := resolver.New(store).PartitionSkills(ctx, skills)
	if err != nil {
		return nil, err
	}
	stored := p.Found
	if len(p.Missing) > 0 {
		if err := store.CreateSkills(ctx, p.Missing); err != nil {
			return nil, fmt.Errorf("failed to create skills: %w", err)
		}
		created, err := store.FindSkillsByNames(ctx, normalizedNames(p.Missing, func(s models.Skill) string { return s.Name }))
		if err != nil {
			return nil, err
		}
		stored = append(stored, created...)
	}
	return inInputOrder(skills, stored, func(s models.Skill) string { return s.Name }), nil
}

func (s *IngestService) getOrCreateTags(ctx context.Context, store Store, tags []models.Tag) ([]models.Tag, error) {
	p, err := resolver.New(store).PartitionTags(ctx, tags)
	if err != nil {
		return nil, err
	}
	stored := p.Found
	if len(p.Missing) > 0 {
		if err := store.CreateTags(ctx, p.Missing); err != nil {
			return nil, fmt.Errorf("failed to create tags: %w", err)
		}
		created, err := store.FindTagsByNames(ctx, normalizedNames(p.Missing, func(t models.Tag) string { return t.Name }))
		if err != nil {
			return nil, err
		}
		stored = append(stored, created...)
	}
	return inInputOrder(tags, stored, func(t models.Tag) string { return t.Name }), nil
}

func normalizedNames[T any](items []T, name func(T) string) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, utils.NormalizeName(name(item)))
	}
	return names
}

// inInputOrder lists stored rows in the order their names first appear in
// the request, one row per normalized name.
func inInputOrder[T any](requested, stored []T, name func(T) string) []T {
	byKey := make(map[string]T, len(stored))
	for _, s := range stored {
		byKey[utils.NormalizeName(name(s))] = s
	}
	out := make([]T, 0, len(byKey))
	for _, r := range requested {
		key := utils.NormalizeName(name(r))
		if row, ok := byKey[key]; ok {
			out = append(out, row)
			delete(byKey, key)
		}
	}
	return out
}

func (s *IngestService) publishCompany(change companyChange) {
	switch change.outcome {
	case models.OutcomeCreated:
		s.produce(events.CompanyCreated, companyKey(&change.company), change.company)
	case models.OutcomeUpdated:
		s.produce(events.CompanyUpdated, companyKey(&change.company), change.company)
	}
}

func (s *IngestService) produce(eventType events.EventType, key string, payload any) {
	if s.producer == nil {
		return
	}
	go func() {
		s.producer.Produce(eventType, key, payload)
	}()
}

func companyKey(c *models.Company) string {
	if !utils.IsBlank(c.SourceCompanyID) {
		return *c.SourceCompanyID
	}
	return c.Name
}
