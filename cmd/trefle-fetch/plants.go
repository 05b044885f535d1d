package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// plantsCommand walks the paginated plants collection.
func plantsCommand(a *app) *cobra.Command {
	var filter, filterNot, order, rng []string

	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Fetch the paginated plants collection in batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(filter, filterNot, order, rng)
			if err != nil {
				return err
			}
			return a.svc.FetchPlants(cmd.Context(), q, a.opts())
		},
	}

	cmd.Flags().StringArrayVar(&filter, "filter", nil, "Filter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&filterNot, "filter-not", nil, "Exclusion filter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&order, "order", nil, "Sort order as field=asc|desc (repeatable)")
	cmd.Flags().StringArrayVar(&rng, "range", nil, "Range filter as field=min,max (repeatable)")

	return cmd
}

// plantCommand fetches individual plants by id or slug.
func plantCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plant <id|slug> [<id|slug>...]",
		Short: "Fetch one or more plants by id or slug",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.FetchPlantsByID(cmd.Context(), args, a.opts())
		},
	}
}

// searchCommand searches the plants collection.
func searchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Search plants and write the results as one unit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.SearchPlants(cmd.Context(), strings.Join(args, " "), a.opts())
		},
	}
}

func buildQuery(filter, filterNot, order, rng []string) (*api.Query, error) {
	f, err := parseKVs(filter, "filter")
	if err != nil {
		return nil, err
	}
	fn, err := parseKVs(filterNot, "filter-not")
	if err != nil {
		return nil, err
	}
	o, err := parseKVs(order, "order")
	if err != nil {
		return nil, err
	}
	r, err := parseKVs(rng, "range")
	if err != nil {
		return nil, err
	}
	if f == nil && fn == nil && o == nil && r == nil {
		return nil, nil
	}
	return &api.Query{Filter: f, FilterNot: fn, Order: o, Range: r}, nil
}
