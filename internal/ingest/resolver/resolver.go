// Package resolver matches scraped entities against stored rows. Every
// lookup is read-only; a miss is a value, not an error.
package resolver

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
)

// Store is the read side of the entity store the resolver needs.
type Store interface {
	FindCompanyBySourceID(ctx context.Context, sourceCompanyID string) (models.Lookup[models.Company], error)
	FindCompanyByName(ctx context.Context, name string) (models.Lookup[models.Company], error)
	FindListingBySourceJobID(ctx context.Context, sourceJobID string) (models.Lookup[models.JobListing], error)
	FindListingByURL(ctx context.Context, url string) (models.Lookup[models.JobListing], error)
	FindSkillsByNames(ctx context.Context, names []string) ([]models.Skill, error)
	FindTagsByNames(ctx context.Context, names []string) ([]models.Tag, error)
}

// MatchKey records which identity produced a hit.
type MatchKey string

const (
	MatchNone            MatchKey = ""
	MatchSourceCompanyID MatchKey = "source_company_id"
	MatchName            MatchKey = "name"
	MatchSourceJobID     MatchKey = "source_job_id"
	MatchURL             MatchKey = "url"
)

// Match is a resolved row together with the key that found it.
type Match[T any] struct {
	models.Lookup[T]
	By MatchKey
}

func hit[T any](v T, by MatchKey) Match[T] {
	return Match[T]{Lookup: models.Found(v), By: by}
}

type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveCompany tries SourceCompanyID first, then the exact name. A source
// id hit wins over a row that only shares the name.
func (r *Resolver) ResolveCompany(ctx context.Context, c *models.Company) (Match[models.Company], error) {
	if !utils.IsBlank(c.SourceCompanyID) {
		found, err := r.store.FindCompanyBySourceID(ctx, strings.TrimSpace(*c.SourceCompanyID))
		if err != nil {
			return Match[models.Company]{}, err
		}
		if found.Found {
			return hit(found.Value, MatchSourceCompanyID), nil
		}
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Match[models.Company]{}, nil
	}
	found, err := r.store.FindCompanyByName(ctx, name)
	if err != nil {
		return Match[models.Company]{}, err
	}
	if found.Found {
		return hit(found.Value, MatchName), nil
	}
	return Match[models.Company]{}, nil
}

// ResolveListing tries SourceJobID first, then the URL.
func (r *Resolver) ResolveListing(ctx context.Context, l *models.JobListing) (Match[models.JobListing], error) {
	if !utils.IsBlank(l.SourceJobID) {
		found, err := r.store.FindListingBySourceJobID(ctx, strings.TrimSpace(*l.SourceJobID))
		if err != nil {
			return Match[models.JobListing]{}, err
		}
		if found.Found {
			return hit(found.Value, MatchSourceJobID), nil
		}
	}
	if l.URL == "" {
		return Match[models.JobListing]{}, nil
	}
	found, err := r.store.FindListingByURL(ctx, l.URL)
	if err != nil {
		return Match[models.JobListing]{}, err
	}
	if found.Found {
		return hit(found.Value, MatchURL), nil
	}
	return Match[models.JobListing]{}, nil
}

// ResolveDetailParent finds the listing a detail belongs to. Details carry
// no identity of their own: a missing SourceJobID is ErrInvalidInput and an
// unknown one is ErrNotFound.
func (r *Resolver) ResolveDetailParent(ctx context.Context, d *models.JobDetail) (models.JobListing, error) {
	id := d.SourceJobID()
	if id == "" {
		return models.JobListing{}, fmt.Errorf("%w: job detail without source job id", e.ErrInvalidInput)
	}
	found, err := r.store.FindListingBySourceJobID(ctx, id)
	if err != nil {
		return models.JobListing{}, err
	}
	if !found.Found {
		return models.JobListing{}, fmt.Errorf("%w: job listing %s", e.ErrNotFound, id)
	}
	return found.Value, nil
}

// Partition splits named candidates into stored rows and names still to be
// created. Missing keeps the first spelling seen for each normalized name.
type Partition[T any] struct {
	Found   []T
	Missing []T
}

// PartitionSkills resolves all skill names in a single query, matching
// case-insensitively and dropping blank and repeated names.
func (r *Resolver) PartitionSkills(ctx context.Context, skills []models.Skill) (Partition[models.Skill], error) {
	unique, keys := dedupe(skills, func(s models.Skill) string { return s.Name })
	stored, err := r.store.FindSkillsByNames(ctx, keys)
	if err != nil {
		return Partition[models.Skill]{}, err
	}
	return split(unique, stored, func(s models.Skill) string { return s.Name }), nil
}

// PartitionTags is PartitionSkills for tags.
func (r *Resolver) PartitionTags(ctx context.Context, tags []models.Tag) (Partition[models.Tag], error) {
	unique, keys := dedupe(tags, func(t models.Tag) string { return t.Name })
	stored, err := r.store.FindTagsByNames(ctx, keys)
	if err != nil {
		return Partition[models.Tag]{}, err
	}
	return split(unique, stored, func(t models.Tag) string { return t.Name }), nil
}

func dedupe[T any](items []T, name func(T) string) ([]T, []string) {
	seen := make(map[string]struct{}, len(items))
	unique := make([]T, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key := utils.NormalizeName(name(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
		keys = append(keys, key)
	}
	return unique, keys
}

func split[T any](candidates, stored []T, name func(T) string) Partition[T] {
	byKey := make(map[string]T, len(stored))
	for _, s := range stored {
		byKey[utils.NormalizeName(name(s))] = s
	}
	var p Partition[T]
	for _, c := range candidates {
		if s, ok := byKey[utils.NormalizeName(name(c))]; ok {
			p.Found = append(p.Found, s)
			continue
		}
		p.Missing = append(p.Missing, c)
	}
	return p
}
