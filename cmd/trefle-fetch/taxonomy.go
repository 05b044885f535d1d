package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// taxonomyKinds are the listable taxonomy categories from the endpoint
// table.
var taxonomyKinds = []string{
	"kingdoms", "subkingdoms", "divisions", "division_classes",
	"division_orders", "genus", "families",
}

// taxonomyCommand fetches taxonomy lists (kingdoms, divisions, genus, ...).
func taxonomyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy <kind> [id|slug]",
		Short: "Fetch a taxonomy list, or a single entry by id or slug",
		Long: "Fetch a taxonomy category in page batches, or a single entry.\n" +
			"Kinds: " + strings.Join(taxonomyKinds, ", "),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !validTaxonomyKind(kind) {
				return &api.ValidationError{
					Field:  "kind",
					Reason: fmt.Sprintf("must be one of %s", strings.Join(taxonomyKinds, ", ")),
				}
			}
			if len(args) == 2 {
				return a.svc.FetchItem(cmd.Context(), kind, args[1], a.opts())
			}
			return a.svc.FetchList(cmd.Context(), kind, nil, a.opts())
		},
	}
	return cmd
}

func validTaxonomyKind(kind string) bool {
	for _, k := range taxonomyKinds {
		if k == kind {
			return true
		}
	}
	return false
}
