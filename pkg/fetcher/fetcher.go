// Package fetcher composes the API client, pagination walker, rate limiter,
// enrichment sub-flow, batch accumulator, and file writer into the
// page-bounded fetch-and-flush operations exposed to the CLI.
package fetcher

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/verdantio/trefle-fetch/pkg/api"
	"github.com/verdantio/trefle-fetch/pkg/batch"
	"github.com/verdantio/trefle-fetch/pkg/fileio"
	"github.com/verdantio/trefle-fetch/pkg/flatten"
	"github.com/verdantio/trefle-fetch/pkg/pagination"
)

// Options controls one fetch operation.
type Options struct {
	// OutputDir receives the written files.
	OutputDir string

	// Format of the written files. FormatAuto resolves to JSON here,
	// since batch filenames are generated rather than user-supplied.
	Format fileio.Format

	// Enrich fetches the detail record for every summary and flattens
	// the pair.
	Enrich bool

	// StartPage is the first page fetched (default 1).
	StartPage int

	// MaxPages caps the walk; 0 means no ceiling.
	MaxPages int

	// PagesPerBatch overrides the batch size (default 5 enriched, 10
	// otherwise).
	PagesPerBatch int

	// DryRun skips all network and file effects but still logs the
	// narrative and the batch-boundary arithmetic.
	DryRun bool
}

func (o Options) batchSize() int {
	if o.PagesPerBatch > 0 {
		return o.PagesPerBatch
	}
	if o.Enrich {
		return batch.PagesPerBatchEnriched
	}
	return batch.PagesPerBatch
}

func (o Options) ext() string {
	if o.Format == fileio.FormatAuto || o.Format == "" {
		return fileio.FormatJSON.Ext()
	}
	return o.Format.Ext()
}

// Service exposes one fetch-and-flush operation per logical category.
type Service struct {
	api     *api.Client
	limiter pagination.Delayer
	cache   batch.DetailCache
	logger  zerolog.Logger
}

// New creates a fetch service. cache may be nil to disable detail caching;
// client may be nil only when every operation runs in dry-run mode.
func New(client *api.Client, limiter pagination.Delayer, cache batch.DetailCache, logger zerolog.Logger) *Service {
	return &Service{
		api:     client,
		limiter: limiter,
		cache:   cache,
		logger:  logger.With().Str("component", "fetcher").Logger(),
	}
}

// FetchPlants walks the paginated plants collection, optionally enriching
// each record, and flushes page batches to
// plants_pages_{start}-{end}{_enriched}?{ext} files.
func (s *Service) FetchPlants(ctx context.Context, q *api.Query, opts Options) error {
	ep, _ := api.EndpointByName("plants")
	return s.runPagedFetch(ctx, "plants", opts, func(ctx context.Context, page int) (*api.Page, error) {
		return s.api.ListPage(ctx, ep, page, q)
	})
}

// SearchPlants walks paginated search results for query and flushes them to
// a single {safe_query}_results{_enriched}?{ext} unit per batch boundary.
func (s *Service) SearchPlants(ctx context.Context, query string, opts Options) error {
	if err := api.RequireNonEmpty("query", query); err != nil {
		return err
	}

	ep, _ := api.EndpointByName("plants")
	name := batch.SearchName(query, opts.Enrich, opts.ext())
	flush := s.fileFlush(name, opts)

	// Search results form one output unit no matter how many pages the
	// walk covers; the accumulator flushes once, at the end of the walk.
	opts.PagesPerBatch = math.MaxInt

	return s.walkAndFlush(ctx, opts, flush, func(ctx context.Context, page int) (*api.Page, error) {
		return s.api.SearchPage(ctx, ep, query, page, nil)
	})
}

// SearchSpecies is the species-level variant of SearchPlants.
func (s *Service) SearchSpecies(ctx context.Context, query string, opts Options) error {
	if err := api.RequireNonEmpty("query", query); err != nil {
		return err
	}

	ep, _ := api.EndpointByName("species")
	name := batch.SearchName(query, opts.Enrich, opts.ext())
	flush := s.fileFlush(name, opts)

	opts.PagesPerBatch = math.MaxInt

	return s.walkAndFlush(ctx, opts, flush, func(ctx context.Context, page int) (*api.Page, error) {
		return s.api.SearchPage(ctx, ep, query, page, nil)
	})
}

// FetchPlant fetches one plant by id or slug and writes it to
// {slug|plant_<id>}_{id}{_enriched}?{ext}.
func (s *Service) FetchPlant(ctx context.Context, idOrSlug string, opts Options) error {
	if err := api.RequireNonEmpty("plant id", idOrSlug); err != nil {
		return err
	}

	if opts.DryRun {
		s.logger.Info().
			Str("plant_id", idOrSlug).
			Str("file", batch.ItemName("", idOrSlug, opts.Enrich, opts.ext())).
			Msg("Dry run - would fetch plant and write file")
		return nil
	}

	ep, _ := api.EndpointByName("plants")
	rec, err := s.api.GetOne(ctx, ep, idOrSlug)
	if err != nil {
		return fmt.Errorf("fetch plant %s: %w", idOrSlug, err)
	}

	out := rec
	if opts.Enrich {
		// The by-ID response already carries main_species; the record
		// serves as both summary and detail.
		out = flatten.Flatten(rec, rec)
	}

	name := batch.ItemName(rec.Str("slug"), rec.ID(), opts.Enrich, opts.ext())
	return s.writeOne(out, name, opts)
}

// FetchPlantsByID fetches several plants by id. Per-item failures are
// logged and skipped; the loop continues with the next id, with a
// rate-limit suspension between fetches.
func (s *Service) FetchPlantsByID(ctx context.Context, ids []string, opts Options) error {
	if len(ids) == 0 {
		return &api.ValidationError{Field: "plant ids", Reason: "must not be empty"}
	}

	for i, id := range ids {
		if i > 0 && !opts.DryRun {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := s.FetchPlant(ctx, id, opts); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Error().
				Err(err).
				Str("plant_id", id).
				Msg("Plant fetch failed - continuing with next id")
		}
	}
	return nil
}

// FetchList walks any listable category from the endpoint table (species,
// genus, families, kingdoms, subkingdoms, divisions, division classes and
// orders, distributions, corrections) and flushes page batches to
// {category}_pages_{start}-{end}{ext} files. Enrichment applies only to the
// plants walk and is ignored here.
func (s *Service) FetchList(ctx context.Context, category string, q *api.Query, opts Options) error {
	ep, ok := api.EndpointByName(category)
	if !ok {
		return &api.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}

	opts.Enrich = false
	return s.runPagedFetch(ctx, ep.Name, opts, func(ctx context.Context, page int) (*api.Page, error) {
		return s.api.ListPage(ctx, ep, page, q)
	})
}

// FetchItem fetches one item of a category by id or slug and writes it.
// Single-fetch errors surface to the caller; loops over several items
// belong there, continuing past failures.
func (s *Service) FetchItem(ctx context.Context, category, id string, opts Options) error {
	ep, ok := api.EndpointByName(category)
	if !ok {
		return &api.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}
	if err := api.RequireNonEmpty(ep.Label+" id", id); err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s%s", ep.Name, batch.SafeName(id), opts.ext())
	if opts.DryRun {
		s.logger.Info().
			Str("category", category).
			Str("id", id).
			Str("file", name).
			Msg("Dry run - would fetch item and write file")
		return nil
	}

	rec, err := s.api.GetOne(ctx, ep, id)
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", ep.Label, id, err)
	}
	return s.writeOne(rec, name, opts)
}

// FetchZonePlants walks the plants recorded in one distribution zone and
// flushes batches to {zone}_plants_pages_{start}-{end}{_enriched}?{ext}.
func (s *Service) FetchZonePlants(ctx context.Context, zoneID string, opts Options) error {
	if err := api.RequireNonEmpty("zone id", zoneID); err != nil {
		return err
	}

	category := batch.SafeName(zoneID) + "_plants"
	return s.runPagedFetch(ctx, category, opts, func(ctx context.Context, page int) (*api.Page, error) {
		return s.api.ZonePlantsPage(ctx, zoneID, page, nil)
	})
}

// SubmitCorrection reads the correction notes from notesPath and posts them
// for speciesID, writing the API response next to the other outputs.
func (s *Service) SubmitCorrection(ctx context.Context, speciesID, notesPath string, opts Options) error {
	if err := api.RequireNonEmpty("species id", speciesID); err != nil {
		return err
	}
	if err := api.RequireNonEmpty("notes filepath", notesPath); err != nil {
		return err
	}

	raw, err := fileio.Read(notesPath, fileio.FormatTxt)
	if err != nil {
		return fmt.Errorf("read correction notes: %w", err)
	}
	notes, _ := raw.(string)
	notes = strings.TrimSpace(notes)
	if err := api.RequireNonEmpty("notes", notes); err != nil {
		return err
	}

	name := fmt.Sprintf("correction_%s%s", batch.SafeName(speciesID), opts.ext())
	if opts.DryRun {
		s.logger.Info().
			Str("species_id", speciesID).
			Int("notes_bytes", len(notes)).
			Str("file", name).
			Msg("Dry run - would submit correction and write response")
		return nil
	}

	rec, err := s.api.SubmitCorrection(ctx, speciesID, notes)
	if err != nil {
		return fmt.Errorf("submit correction for species %s: %w", speciesID, err)
	}

	s.logger.Info().
		Str("species_id", speciesID).
		Str("correction", rec.Str("slug")).
		Msg("Correction submitted")
	return s.writeOne(rec, name, opts)
}

// runPagedFetch is the shared paginated fetch-and-flush loop. Batches are
// named {category}_pages_{start}-{end}{_enriched}?{ext}.
func (s *Service) runPagedFetch(ctx context.Context, category string, opts Options, fetch pagination.PageFetcher) error {
	flush := func(records []api.Record, startPage, endPage int) error {
		name := batch.PagedName(category, startPage, endPage, opts.Enrich, opts.ext())
		return s.flushToFile(records, name, opts)
	}
	return s.walkAndFlush(ctx, opts, flush, fetch)
}

// walkAndFlush drives the walker, the optional enrichment sub-flow, and the
// accumulator, honoring the flush-then-terminate policy on page errors and
// the abandon-batch policy on interrupts.
func (s *Service) walkAndFlush(ctx context.Context, opts Options, flush batch.FlushFunc, fetch pagination.PageFetcher) error {
	acc := batch.NewAccumulator(opts.batchSize(), flush, s.logger)

	if opts.DryRun {
		return s.dryRunWalk(acc, opts)
	}

	var enricher *batch.Enricher
	if opts.Enrich {
		ep, _ := api.EndpointByName("plants")
		enricher = batch.NewEnricher(func(ctx context.Context, id string) (api.Record, error) {
			return s.api.GetOne(ctx, ep, id)
		}, s.limiter, s.cache, s.logger)
	}

	walker := pagination.NewWalker(s.limiter, s.logger)
	walkOpts := pagination.Options{StartPage: opts.StartPage, MaxPages: opts.MaxPages}

	err := walker.Walk(ctx, fetch, walkOpts, func(page int, p *api.Page, last bool) error {
		records := p.Data
		if enricher != nil {
			var err error
			records, err = enricher.EnrichPage(ctx, records, last)
			if err != nil {
				return err
			}
		} else {
			records = flatten.TrimSynonyms(records, flatten.MaxSynonyms)
		}
		return acc.Add(page, records)
	})

	if err != nil {
		if ctx.Err() != nil {
			// Interrupted: the partially accumulated batch is
			// abandoned, not flushed.
			s.logger.Warn().
				Int("pages", acc.Pages()).
				Int("records", acc.Len()).
				Msg("Walk interrupted - abandoning open batch")
			return err
		}
		// A page error flushes the partial batch, then the walk
		// terminates.
		if ferr := acc.Finish(); ferr != nil {
			s.logger.Error().Err(ferr).Msg("Partial batch flush failed")
		}
		return err
	}

	return acc.Finish()
}

// dryRunWalk simulates the page walk: no network, no files, but the same
// page and batch-boundary narrative. Without a response there is no total
// page count, so the walk covers MaxPages pages (default 1).
func (s *Service) dryRunWalk(acc *batch.Accumulator, opts Options) error {
	pages := opts.MaxPages
	if pages <= 0 {
		pages = 1
	}
	start := opts.StartPage
	if start <= 0 {
		start = 1
	}

	for page := start; page < start+pages; page++ {
		s.logger.Info().
			Int("page", page).
			Bool("enrich", opts.Enrich).
			Msg("Dry run - would fetch page")
		if err := acc.Add(page, nil); err != nil {
			return err
		}
	}
	return acc.Finish()
}

// flushToFile hands one closed batch to the file writer, or logs the
// would-be write in dry-run mode.
func (s *Service) flushToFile(records []api.Record, name string, opts Options) error {
	path := filepath.Join(opts.OutputDir, name)
	if opts.DryRun {
		s.logger.Info().
			Str("file", path).
			Int("records", len(records)).
			Msg("Dry run - would write batch file")
		return nil
	}

	if err := fileio.Write(records, path, opts.Format); err != nil {
		return fmt.Errorf("write batch %s: %w", path, err)
	}
	s.logger.Info().
		Str("file", path).
		Int("records", len(records)).
		Msg("Batch file written")
	return nil
}

// fileFlush returns a FlushFunc writing a batch to a fixed unit name,
// independent of its page span. Callers pairing this with a bounded batch
// size must accept the file being rewritten at each boundary; search walks
// avoid that by never flushing before the end of the walk.
func (s *Service) fileFlush(name string, opts Options) batch.FlushFunc {
	return func(records []api.Record, startPage, endPage int) error {
		return s.flushToFile(records, name, opts)
	}
}

// writeOne persists a single record.
func (s *Service) writeOne(rec api.Record, name string, opts Options) error {
	path := filepath.Join(opts.OutputDir, name)

	var data any = rec
	if opts.Format == fileio.FormatCSV {
		data = []api.Record{rec}
	}
	if err := fileio.Write(data, path, opts.Format); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info().
		Str("file", path).
		Msg("File written")
	return nil
}
