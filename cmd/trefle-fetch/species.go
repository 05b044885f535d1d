package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// speciesCommand fetches the species collection or searches it.
func speciesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Fetch the paginated species collection in batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.FetchList(cmd.Context(), "species", nil, a.opts())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "search <query>...",
			Short: "Search species and write the results as one unit",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.SearchSpecies(cmd.Context(), strings.Join(args, " "), a.opts())
			},
		},
		&cobra.Command{
			Use:   "get <id|slug>",
			Short: "Fetch a single species by id or slug",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.svc.FetchItem(cmd.Context(), "species", args[0], a.opts())
			},
		},
	)

	return cmd
}
