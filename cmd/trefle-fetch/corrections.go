package main

import (
	"github.com/spf13/cobra"
)

// correctionsCommand lists, fetches, and submits record corrections.
func correctionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Fetch the corrections list in batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.FetchList(cmd.Context(), "corrections", nil, a.opts())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <slug>",
			Short: "Fetch a single correction by slug",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.FetchItem(cmd.Context(), "corrections", args[0], a.opts())
			},
		},
		&cobra.Command{
			Use:   "submit <species-id> <notes-file>",
			Short: "Submit a correction for a species from a notes file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.SubmitCorrection(cmd.Context(), args[0], args[1], a.opts())
			},
		},
	)

	return cmd
}
