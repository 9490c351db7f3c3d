// Package commands implements ingestctl, the operator CLI for the ingestion
// store: schema migration, offline replay of stored results and lookups.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gartstein/jobscraper/internal/ingest/config"
	"github.com/gartstein/jobscraper/internal/ingest/controller"
	"github.com/gartstein/jobscraper/internal/ingest/db"
	"github.com/gartstein/jobscraper/internal/ingest/geocode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	configPath string
	sqlitePath string
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ingestctl",
		Short:         "ingestctl migrates, replays into and inspects the job listing store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML config (default $JOBSCRAPER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "use a sqlite database file instead of the configured database")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(opts),
		newReplayCmd(opts),
		newLookupCmd(opts),
	)
	return root
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) logger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if o.verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// database resolves the store config. --sqlite bypasses the config file so
// local files can be inspected without one.
func (o *options) database() (*db.Config, *config.Config, error) {
	if o.sqlitePath != "" && o.configPath == "" {
		return &db.Config{Driver: db.DriverSQLite, Path: o.sqlitePath, MaxRetries: 3}, nil, nil
	}
	cfg, err := config.Load(config.Path(o.configPath))
	if err != nil {
		return nil, nil, err
	}
	dbCfg := cfg.Database()
	if o.sqlitePath != "" {
		dbCfg.Driver = db.DriverSQLite
		dbCfg.Path = o.sqlitePath
	}
	return dbCfg, cfg, nil
}

// engine opens the store and builds the service. Events are not published
// from the CLI.
func (o *options) engine(logger *zap.Logger, withGeocoder bool) (*controller.IngestService, *db.Repository, error) {
	dbCfg, cfg, err := o.database()
	if err != nil {
		return nil, nil, err
	}
	repo, err := db.NewRepository(dbCfg)
	if err != nil {
		return nil, nil, err
	}

	policy := controller.GeocodeSoft
	var geocoder controller.Geocoder
	if cfg != nil {
		if policy, err = cfg.Policy(); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		if withGeocoder && cfg.Geocoding() {
			geocoder = geocode.NewClient(cfg.Geocoder(), logger)
		}
	}
	return controller.NewIngestService(repo, nil, geocoder, policy, logger), repo, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
