package commands

import (
	"fmt"

	"github.com/gartstein/jobscraper/internal/ingest/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates or updates the store schema and prints row counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbCfg, _, err := opts.database()
			if err != nil {
				return err
			}
			repo, err := db.NewRepository(dbCfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			companies, err := repo.CountCompanies(ctx)
			if err != nil {
				return err
			}
			listings, err := repo.CountListings(ctx)
			if err != nil {
				return err
			}
			details, err := repo.CountDetails(ctx)
			if err != nil {
				return err
			}
			skills, err := repo.CountSkills(ctx)
			if err != nil {
				return err
			}
			tags, err := repo.CountTags(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: companies=%d listings=%d details=%d skills=%d tags=%d\n",
				companies, listings, details, skills, tags)
			return nil
		},
	}
}
