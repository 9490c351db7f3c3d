// Package db is the entity store: companies, job listings, job details,
// skills and tags persisted through gorm on postgres or sqlite.
package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbm "github.com/gartstein/jobscraper/internal/ingest/db/models"
	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db   *gorm.DB
	cfg  Config
	inTx bool
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file, or ":memory:".
	Path string

	// MaxRetries bounds the attempts for transient failures.
	MaxRetries uint64
	// RetryInitialInterval is the first backoff step.
	RetryInitialInterval time.Duration
	// QueryTimeout bounds each unit of work; zero disables it.
	QueryTimeout time.Duration
}

func NewRepository(cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", e.ErrInvalidInput, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive and
		// serializes writers the way sqlite expects.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := db.AutoMigrate(dbm.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db, cfg: *cfg}, nil
}

// WithTransaction runs fn in one transaction. A transient failure rolls the
// whole unit back and retries it with backoff.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.retry(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Repository{db: tx, cfg: r.cfg, inTx: true})
		})
	})
}

// run executes a single statement group, retrying transient failures when
// not already inside a transaction.
func (r *Repository) run(ctx context.Context, op func(db *gorm.DB) error) error {
	if r.inTx {
		return translate(op(r.db.WithContext(ctx)))
	}
	return r.retry(ctx, func(ctx context.Context) error {
		return op(r.db.WithContext(ctx))
	})
}

func (r *Repository) retry(ctx context.Context, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	if r.cfg.RetryInitialInterval > 0 {
		b.InitialInterval = r.cfg.RetryInitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)

	return backoff.Retry(func() error {
		attemptCtx, cancel := r.withTimeout(ctx)
		defer cancel()

		err := translate(op(attemptCtx))
		if err == nil {
			return nil
		}
		if errors.Is(err, e.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.QueryTimeout)
}

// translate maps driver and gorm errors onto the service taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, e.ErrNotFound), errors.Is(err, e.ErrDuplicateEntity),
		errors.Is(err, e.ErrTransient), errors.Is(err, e.ErrInvalidInput):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", e.ErrDuplicateEntity, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr) && netErr.Timeout(), isBusy(err):
		return fmt.Errorf("%w: %v", e.ErrTransient, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "connection refused")
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
