package main

import (
	"github.com/spf13/cobra"
)

// zonesCommand fetches distribution zones and the plants recorded in them.
func zonesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Fetch the distribution zones in batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.FetchList(cmd.Context(), "distributions", nil, a.opts())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <zone-id>",
			Short: "Fetch a single distribution zone",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.FetchItem(cmd.Context(), "distributions", args[0], a.opts())
			},
		},
		&cobra.Command{
			Use:   "plants <zone-id>",
			Short: "Fetch the plants recorded in a distribution zone",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.FetchZonePlants(cmd.Context(), args[0], a.opts())
			},
		},
	)

	return cmd
}
