package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReplayCmd(opts *options) *cobra.Command {
	var (
		workers   int
		noGeocode bool
	)
	cmd := &cobra.Command{
		Use:   "replay <result.json>...",
		Short: "Dispatches stored ScrapingResult files through the reconciliation engine.",
		Long: "Each file holds one ScrapingResult object or an array of them. " +
			"A report per result is printed; the command fails if any result failed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer func() { _ = logger.Sync() }()

			svc, repo, err := opts.engine(logger, !noGeocode)
			if err != nil {
				return err
			}
			defer repo.Close()

			d, err := dispatcher.New(svc, workers, logger)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				results, err := readResults(path)
				if err != nil {
					return err
				}
				for _, result := range results {
					report := d.Dispatch(cmd.Context(), result)
					if report.Status == dispatcher.StatusFailed {
						failed++
					}
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				}
				logger.Info("Replayed result file", zap.String("path", path), zap.Int("results", len(results)))
			}
			if failed > 0 {
				return fmt.Errorf("%d result(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "listings reconciled concurrently per batch")
	cmd.Flags().BoolVar(&noGeocode, "no-geocode", false, "skip address geocoding")
	return cmd
}

func readResults(path string) ([]models.ScrapingResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var results []models.ScrapingResult
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return results, nil
	}
	var result models.ScrapingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []models.ScrapingResult{result}, nil
}
