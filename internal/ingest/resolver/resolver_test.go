package resolver

import (
	"context"
	"errors"
	"testing"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore is a function-field fake of Store.
type MockStore struct {
	FindCompanyBySourceIDFunc    func(ctx context.Context, id string) (models.Lookup[models.Company], error)
	FindCompanyByNameFunc        func(ctx context.Context, name string) (models.Lookup[models.Company], error)
	FindListingBySourceJobIDFunc func(ctx context.Context, id string) (models.Lookup[models.JobListing], error)
	FindListingByURLFunc         func(ctx context.Context, url string) (models.Lookup[models.JobListing], error)
	FindSkillsByNamesFunc        func(ctx context.Context, names []string) ([]models.Skill, error)
	FindTagsByNamesFunc          func(ctx context.Context, names []string) ([]models.Tag, error)
}

func (m *MockStore) FindCompanyBySourceID(ctx context.Context, id string) (models.Lookup[models.Company], error) {
	if m.FindCompanyBySourceIDFunc == nil {
		return models.Missing[models.Company](), nil
	}
	return m.FindCompanyBySourceIDFunc(ctx, id)
}

func (m *MockStore) FindCompanyByName(ctx context.Context, name string) (models.Lookup[models.Company], error) {
	if m.FindCompanyByNameFunc == nil {
		return models.Missing[models.Company](), nil
	}
	return m.FindCompanyByNameFunc(ctx, name)
}

func (m *MockStore) FindListingBySourceJobID(ctx context.Context, id string) (models.Lookup[models.JobListing], error) {
	if m.FindListingBySourceJobIDFunc == nil {
		return models.Missing[models.JobListing](), nil
	}
	return m.FindListingBySourceJobIDFunc(ctx, id)
}

func (m *MockStore) FindListingByURL(ctx context.Context, url string) (models.Lookup[models.JobListing], error) {
	if m.FindListingByURLFunc == nil {
		return models.Missing[models.JobListing](), nil
	}
	return m.FindListingByURLFunc(ctx, url)
}

func (m *MockStore) FindSkillsByNames(ctx context.Context, names []string) ([]models.Skill, error) {
	if m.FindSkillsByNamesFunc == nil {
		return nil, nil
	}
	return m.FindSkillsByNamesFunc(ctx, names)
}

func (m *MockStore) FindTagsByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	if m.FindTagsByNamesFunc == nil {
		return nil, nil
	}
	return m.FindTagsByNamesFunc(ctx, names)
}

func TestResolveCompanySourceIDWins(t *testing.T) {
	nameCalls := 0
	store := &MockStore{
		FindCompanyBySourceIDFunc: func(_ context.Context, id string) (models.Lookup[models.Company], error) {
			assert.Equal(t, "wanted::123", id)
			return models.Found(models.Company{ID: 1, Name: "Acme Corp"}), nil
		},
		FindCompanyByNameFunc: func(context.Context, string) (models.Lookup[models.Company], error) {
			nameCalls++
			return models.Found(models.Company{ID: 2, Name: "Acme"}), nil
		},
	}

	m, err := New(store).ResolveCompany(context.Background(), &models.Company{
		Name:            "Acme",
		SourceCompanyID: utils.Ptr(" wanted::123 "),
	})
	require.NoError(t, err)
	require.True(t, m.Found)
	assert.EqualValues(t, 1, m.Value.ID)
	assert.Equal(t, MatchSourceCompanyID, m.By)
	assert.Zero(t, nameCalls, "name lookup is skipped after a source id hit")
}

func TestResolveCompanyFallsBackToName(t *testing.T) {
	store := &MockStore{
		FindCompanyByNameFunc: func(_ context.Context, name string) (models.Lookup[models.Company], error) {
			if name == "Acme" {
				return models.Found(models.Company{ID: 7, Name: "Acme"}), nil
			}
			return models.Missing[models.Company](), nil
		},
	}
	r := New(store)

	m, err := r.ResolveCompany(context.Background(), &models.Company{Name: "Acme", SourceCompanyID: utils.Ptr("jumpit::9")})
	require.NoError(t, err)
	assert.True(t, m.Found)
	assert.Equal(t, MatchName, m.By)

	m, err = r.ResolveCompany(context.Background(), &models.Company{Name: "Globex"})
	require.NoError(t, err)
	assert.False(t, m.Found)
	assert.Equal(t, MatchNone, m.By)
}

func TestResolveCompanyPropagatesStoreErrors(t *testing.T) {
	store := &MockStore{
		FindCompanyBySourceIDFunc: func(context.Context, string) (models.Lookup[models.Company], error) {
			return models.Missing[models.Company](), e.ErrTransient
		},
	}

	_, err := New(store).ResolveCompany(context.Background(), &models.Company{Name: "Acme", SourceCompanyID: utils.Ptr("wanted::1")})
	assert.ErrorIs(t, err, e.ErrTransient)
}

func TestResolveListing(t *testing.T) {
	store := &MockStore{
		FindListingByURLFunc: func(_ context.Context, url string) (models.Lookup[models.JobListing], error) {
			return models.Found(models.JobListing{ID: 3, URL: url}), nil
		},
	}

	m, err := New(store).ResolveListing(context.Background(), &models.JobListing{
		SourceJobID: utils.Ptr("wanted::1"),
		URL:         "https://x/1",
	})
	require.NoError(t, err)
	assert.True(t, m.Found)
	assert.Equal(t, MatchURL, m.By)
}

func TestResolveDetailParent(t *testing.T) {
	store := &MockStore{
		FindListingBySourceJobIDFunc: func(_ context.Context, id string) (models.Lookup[models.JobListing], error) {
			if id == "wanted::1" {
				return models.Found(models.JobListing{ID: 5}), nil
			}
			return models.Missing[models.JobListing](), nil
		},
	}
	r := New(store)
	ctx := context.Background()

	parent, err := r.ResolveDetailParent(ctx, &models.JobDetail{Listing: models.JobListing{SourceJobID: utils.Ptr("wanted::1")}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, parent.ID)

	_, err = r.ResolveDetailParent(ctx, &models.JobDetail{Listing: models.JobListing{SourceJobID: utils.Ptr("wanted::2")}})
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = r.ResolveDetailParent(ctx, &models.JobDetail{})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestPartitionSkillsSingleQuery(t *testing.T) {
	calls := 0
	store := &MockStore{
		FindSkillsByNamesFunc: func(_ context.Context, names []string) ([]models.Skill, error) {
			calls++
			assert.Equal(t, []string{"python", "go", "sql"}, names)
			return []models.Skill{{ID: 1, Name: "Python", IconURL: utils.Ptr("https://icons/py.svg")}}, nil
		},
	}

	p, err := New(store).PartitionSkills(context.Background(), []models.Skill{
		{Name: "PYTHON"},
		{Name: "Go"},
		{Name: "python"},
		{Name: "  "},
		{Name: "SQL"},
		{Name: "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	want := Partition[models.Skill]{
		Found:   []models.Skill{{ID: 1, Name: "Python", IconURL: utils.Ptr("https://icons/py.svg")}},
		Missing: []models.Skill{{Name: "Go"}, {Name: "SQL"}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("partition mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionTagsError(t *testing.T) {
	boom := errors.New("boom")
	store := &MockStore{
		FindTagsByNamesFunc: func(context.Context, []string) ([]models.Tag, error) { return nil, boom },
	}

	_, err := New(store).PartitionTags(context.Background(), []models.Tag{{Name: "remote"}})
	assert.ErrorIs(t, err, boom)
}
