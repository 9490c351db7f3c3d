package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"testing"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockReconciler implements Reconciler with function fields.
type MockReconciler struct {
	createListing func(context.Context, models.JobListing) (*models.JobListing, error)
	upsertDetail  func(context.Context, models.JobDetail) (*models.JobDetail, models.Outcome, error)
	upsertCompany func(context.Context, models.Company) (*models.Company, models.Outcome, error)
}

func (m *MockReconciler) CreateListing(ctx context.Context, l models.JobListing) (*models.JobListing, error) {
	return m.createListing(ctx, l)
}

func (m *MockReconciler) UpsertDetail(ctx context.Context, d models.JobDetail) (*models.JobDetail, models.Outcome, error) {
	return m.upsertDetail(ctx, d)
}

func (m *MockReconciler) UpsertCompany(ctx context.Context, c models.Company) (*models.Company, models.Outcome, error) {
	return m.upsertCompany(ctx, c)
}

func newDispatcher(t *testing.T, engine Reconciler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	d, err := New(engine, 4, logger)
	require.NoError(t, err)
	return d
}

func listing(id string) models.JobListing {
	return models.JobListing{
		SourceJobID: utils.Ptr("wanted::" + id),
		Title:       "Engineer",
		URL:         "https://x/" + id,
		Company:     models.Company{Name: "Acme"},
	}
}

func TestDispatchRejectsUpstreamFailure(t *testing.T) {
	d := newDispatcher(t, &MockReconciler{}, nil)

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandID:    uuid.New(),
		CommandType:  models.CommandGetJobListings,
		Success:      false,
		ErrorMessage: "HTTP 503 from board",
	})

	assert.Equal(t, StatusRejected, report.Status)
	assert.Equal(t, []State{StateReceived, StateRejected, StateReported}, report.States)
	assert.ErrorIs(t, report.Err, e.ErrScrapeFailed)
	assert.Contains(t, report.Message, "HTTP 503")
}

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	d := newDispatcher(t, &MockReconciler{}, nil)

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandType: models.CommandUnknown,
		Success:     true,
	})

	assert.Equal(t, StatusRejected, report.Status)
	assert.Equal(t, StateReported, report.State())
	assert.ErrorIs(t, report.Err, e.ErrUnknownCommand)
	assert.Equal(t, e.KindValidation, report.ErrorKind)
}

func TestDispatchListingsBatch(t *testing.T) {
	var (
		mu      sync.Mutex
		sources []models.Source
	)
	engine := &MockReconciler{
		createListing: func(_ context.Context, l models.JobListing) (*models.JobListing, error) {
			mu.Lock()
			sources = append(sources, l.Source)
			mu.Unlock()
			switch *l.SourceJobID {
			case "wanted::dup":
				return nil, fmt.Errorf("%w: already stored", e.ErrDuplicateEntity)
			case "wanted::bad":
				return nil, fmt.Errorf("%w: title required", e.ErrInvalidInput)
			case "wanted::down":
				return nil, fmt.Errorf("%w: timeout", e.ErrTransient)
			}
			return &l, nil
		},
	}
	core, recorded := observer.New(zap.InfoLevel)
	d := newDispatcher(t, engine, zap.New(core))

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandID:   uuid.New(),
		CommandType: models.CommandGetJobListings,
		Source:      models.SourceWanted,
		Success:     true,
		JobListings: []models.JobListing{listing("1"), listing("dup"), listing("bad"), listing("2"), listing("down")},
		Metadata:    map[string]string{"totalCount": "5", "page": "1"},
	})

	assert.Equal(t, []State{StateReceived, StateRouted, StateListingsProcessed, StateReported}, report.States)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, StatusPartial, report.Status)

	assert.Len(t, sources, 5)
	for _, s := range sources {
		assert.Equal(t, models.SourceWanted, s, "listing source defaults to the result source")
	}
	assert.Equal(t, 2, recorded.FilterMessage("Skipped job listing").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to ingest job listing").Len())
	assert.Equal(t, 1, recorded.FilterField(zap.String("total_count", "5")).Len())
}

func TestDispatchListingsAllSkippedStillSucceeds(t *testing.T) {
	engine := &MockReconciler{
		createListing: func(context.Context, models.JobListing) (*models.JobListing, error) {
			return nil, e.ErrDuplicateEntity
		},
	}
	d := newDispatcher(t, engine, nil)

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandType: models.CommandGetJobListings,
		Success:     true,
		JobListings: []models.JobListing{listing("1"), listing("2")},
	})

	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Processed)
	assert.NoError(t, report.Err)
}

func TestDispatchDetail(t *testing.T) {
	tests := []struct {
		name       string
		detail     *models.JobDetail
		engineErr  error
		wantStatus Status
		wantStates []State
		wantErr    error
	}{
		{
			name:       "updated",
			detail:     &models.JobDetail{Listing: listing("1")},
			wantStatus: StatusSucceeded,
			wantStates: []State{StateReceived, StateRouted, StateDetailProcessed, StateReported},
		},
		{
			name:       "parent listing missing",
			detail:     &models.JobDetail{Listing: listing("1")},
			engineErr:  fmt.Errorf("%w: job listing wanted::1", e.ErrNotFound),
			wantStatus: StatusFailed,
			wantStates: []State{StateReceived, StateRouted, StateDetailProcessed, StateReported},
			wantErr:    e.ErrNotFound,
		},
		{
			name:       "missing payload",
			wantStatus: StatusRejected,
			wantStates: []State{StateReceived, StateRouted, StateRejected, StateReported},
			wantErr:    e.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := 0
			engine := &MockReconciler{
				upsertDetail: func(_ context.Context, d models.JobDetail) (*models.JobDetail, models.Outcome, error) {
					called++
					if tt.engineErr != nil {
						return nil, "", tt.engineErr
					}
					return &d, models.OutcomeUpdated, nil
				},
			}
			d := newDispatcher(t, engine, nil)

			report := d.Dispatch(context.Background(), models.ScrapingResult{
				CommandType: models.CommandGetJobDetail,
				Success:     true,
				JobDetail:   tt.detail,
			})

			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantStates, report.States)
			if tt.wantErr != nil {
				assert.ErrorIs(t, report.Err, tt.wantErr)
			} else {
				assert.Equal(t, 1, report.Updated)
			}
			if tt.detail == nil {
				assert.Zero(t, called, "engine is not reached without a payload")
			}
		})
	}
}

func TestDispatchCompany(t *testing.T) {
	engine := &MockReconciler{
		upsertCompany: func(_ context.Context, c models.Company) (*models.Company, models.Outcome, error) {
			return &c, models.OutcomeUnchanged, nil
		},
	}
	d := newDispatcher(t, engine, nil)

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandType: models.CommandGetCompany,
		Success:     true,
		Company:     &models.Company{Name: "Acme"},
	})

	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, []State{StateReceived, StateRouted, StateCompanyProcessed, StateReported}, report.States)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.Processed)
}

func TestDispatchCompanyTransientFailure(t *testing.T) {
	engine := &MockReconciler{
		upsertCompany: func(context.Context, models.Company) (*models.Company, models.Outcome, error) {
			return nil, "", fmt.Errorf("%w: connection reset", e.ErrTransient)
		},
	}
	d := newDispatcher(t, engine, nil)

	report := d.Dispatch(context.Background(), models.ScrapingResult{
		CommandType: models.CommandGetCompany,
		Success:     true,
		Company:     &models.Company{Name: "Acme"},
	})

	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, e.KindTransient, report.ErrorKind)
	assert.Equal(t, 1, report.Failed)
}
