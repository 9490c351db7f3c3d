package commands

import (
	"github.com/spf13/cobra"
)

func newLookupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Prints stored entities by their source identifiers.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "listing <sourceJobId>",
			Short: "Prints a listing with its detail, skills and tags when present.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := opts.logger()
				svc, repo, err := opts.engine(logger, false)
				if err != nil {
					return err
				}
				defer repo.Close()

				ctx := cmd.Context()
				detail, err := svc.GetDetailBySourceJobID(ctx, args[0])
				if err == nil {
					return printJSON(cmd.OutOrStdout(), detail)
				}
				listing, lerr := svc.GetListingBySourceJobID(ctx, args[0])
				if lerr != nil {
					return lerr
				}
				return printJSON(cmd.OutOrStdout(), listing)
			},
		},
		&cobra.Command{
			Use:   "company <sourceCompanyId>",
			Short: "Prints a company by its source company id.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := opts.logger()
				svc, repo, err := opts.engine(logger, false)
				if err != nil {
					return err
				}
				defer repo.Close()

				company, err := svc.GetCompanyBySourceID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), company)
			},
		},
	)
	return cmd
}
