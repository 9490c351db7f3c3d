// Package dispatcher routes scraping results to the reconciliation engine by
// command type and turns every result into a terminal Report.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/gartstein/jobscraper/internal/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var meter = otel.Meter("jobscraper.ingest.dispatcher")

// Reconciler is the engine surface the dispatcher drives.
type Reconciler interface {
	CreateListing(ctx context.Context, listing models.JobListing) (*models.JobListing, error)
	UpsertDetail(ctx context.Context, detail models.JobDetail) (*models.JobDetail, models.Outcome, error)
	UpsertCompany(ctx context.Context, company models.Company) (*models.Company, models.Outcome, error)
}

type Dispatcher struct {
	engine  Reconciler
	workers int
	logger  *zap.Logger

	resultCounter metric.Int64Counter
	itemCounter   metric.Int64Counter
}

// New builds a dispatcher. workers bounds how many listings of one batch
// are reconciled at once; values below 1 mean sequential.
func New(engine Reconciler, workers int, logger *zap.Logger) (*Dispatcher, error) {
	if workers < 1 {
		workers = 1
	}
	resultCounter, err := meter.Int64Counter(
		"ingest.results",
		metric.WithDescription("Scraping results reported, by command type and status."),
	)
	if err != nil {
		return nil, err
	}
	itemCounter, err := meter.Int64Counter(
		"ingest.items",
		metric.WithDescription("Entities reconciled, by command type and outcome."),
	)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		engine:        engine,
		workers:       workers,
		logger:        logger.Named("dispatcher"),
		resultCounter: resultCounter,
		itemCounter:   itemCounter,
	}, nil
}

// Dispatch reconciles one result. It never returns without a Report in
// state Reported; failures are carried in the Report.
func (d *Dispatcher) Dispatch(ctx context.Context, result models.ScrapingResult) Report {
	started := time.Now()
	report := Report{
		ResultID:    result.ID,
		CommandID:   result.CommandID,
		CommandType: result.CommandType,
		Source:      result.Source,
		Status:      StatusSucceeded,
		States:      []State{StateReceived},
	}
	logger := d.logger.With(
		zap.String("command_id", result.CommandID.String()),
		zap.String("command_type", result.CommandType.String()),
		zap.String("source", string(result.Source)),
	)

	d.route(ctx, logger, &result, &report)

	report.advance(StateReported)
	report.Duration = time.Since(started)
	d.record(ctx, &report)

	fields := []zap.Field{
		zap.String("status", string(report.Status)),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("scrape_duration", result.Duration()),
	}
	if total, ok := result.Metadata["totalCount"]; ok {
		fields = append(fields, zap.String("total_count", total))
	}
	if page, ok := result.Metadata["page"]; ok {
		fields = append(fields, zap.String("page", page))
	}
	switch report.Status {
	case StatusFailed:
		logger.Error("Scraping result failed", append(fields, zap.Error(report.Err))...)
	case StatusRejected:
		logger.Warn("Scraping result rejected", append(fields, zap.Error(report.Err))...)
	default:
		logger.Info("Scraping result reported", fields...)
	}
	return report
}

func (d *Dispatcher) route(ctx context.Context, logger *zap.Logger, result *models.ScrapingResult, report *Report) {
	if !result.Success {
		d.reject(report, fmt.Errorf("%w: %s", e.ErrScrapeFailed, result.ErrorMessage))
		return
	}
	if !result.CommandType.Known() {
		d.reject(report, fmt.Errorf("%w: %s", e.ErrUnknownCommand, result.CommandType))
		return
	}
	report.advance(StateRouted)

	switch result.CommandType {
	case models.CommandGetJobListings:
		d.processListings(ctx, logger, result, report)
		report.advance(StateListingsProcessed)

	case models.CommandGetJobDetail:
		if result.JobDetail == nil {
			d.reject(report, fmt.Errorf("%w: %s result without job detail", e.ErrInvalidInput, result.CommandType))
			return
		}
		_, outcome, err := d.engine.UpsertDetail(ctx, *result.JobDetail)
		d.single(report, outcome, err)
		report.advance(StateDetailProcessed)

	case models.CommandGetCompany:
		if result.Company == nil {
			d.reject(report, fmt.Errorf("%w: %s result without company", e.ErrInvalidInput, result.CommandType))
			return
		}
		_, outcome, err := d.engine.UpsertCompany(ctx, *result.Company)
		d.single(report, outcome, err)
		report.advance(StateCompanyProcessed)
	}
}

func (d *Dispatcher) reject(report *Report, err error) {
	report.fail(StatusRejected, err)
	report.advance(StateRejected)
}

// single is all-or-nothing: any error fails the whole result.
func (d *Dispatcher) single(report *Report, outcome models.Outcome, err error) {
	if err != nil {
		report.Failed++
		report.fail(StatusFailed, err)
		return
	}
	report.count(outcome)
}

// processListings reconciles every listing independently. Duplicates and
// invalid items are skipped, other errors are counted as failed, and no
// item aborts the batch.
func (d *Dispatcher) processListings(ctx context.Context, logger *zap.Logger, result *models.ScrapingResult, report *Report) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.workers)

	for _, listing := range result.JobListings {
		if listing.Source == "" {
			listing.Source = result.Source
		}
		g.Go(func() error {
			_, err := d.engine.CreateListing(ctx, listing)

			mu.Lock()
			defer mu.Unlock()
			itemLog := logger.With(
				zap.String("source_job_id", utils.Deref(listing.SourceJobID)),
				zap.String("url", listing.URL),
			)
			switch {
			case err == nil:
				report.count(models.OutcomeCreated)
			case e.IsSkippable(err):
				report.Skipped++
				itemLog.Info("Skipped job listing", zap.Error(err))
			default:
				report.Failed++
				itemLog.Error("Failed to ingest job listing", zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if report.Failed > 0 {
		report.Status = StatusPartial
		report.Message = fmt.Sprintf("%d of %d listings failed", report.Failed, len(result.JobListings))
	}
}

func (d *Dispatcher) record(ctx context.Context, report *Report) {
	command := attribute.String("command_type", report.CommandType.String())
	d.resultCounter.Add(ctx, 1, metric.WithAttributes(command, attribute.String("status", string(report.Status))))

	for outcome, n := range map[string]int{
		string(models.OutcomeCreated):   report.Created,
		string(models.OutcomeUpdated):   report.Updated,
		string(models.OutcomeUnchanged): report.Unchanged,
		"skipped":                       report.Skipped,
		"failed":                        report.Failed,
	} {
		if n > 0 {
			d.itemCounter.Add(ctx, int64(n), metric.WithAttributes(command, attribute.String("outcome", outcome)))
		}
	}
}
