package batch

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/verdantio/trefle-fetch/pkg/api"
	"github.com/verdantio/trefle-fetch/pkg/flatten"
	"github.com/verdantio/trefle-fetch/pkg/pagination"
)

// Prometheus metrics for the enrichment sub-flow.
var (
	enrichmentFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trefle_enrichment_fallbacks_total",
		Help: "Records that fell back to their unenriched summary form, by cause",
	}, []string{"cause"})

	enrichmentCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_enrichment_cache_hits_total",
		Help: "Detail fetches satisfied from the detail-record cache",
	})
)

// DetailFunc fetches the detail record for a summary record's identifier.
type DetailFunc func(ctx context.Context, id string) (api.Record, error)

// DetailCache is an optional read-through cache of detail records keyed by
// plant id. A nil cache disables caching.
type DetailCache interface {
	GetDetail(ctx context.Context, id string) (api.Record, error)
	SetDetail(ctx context.Context, id string, rec api.Record) error
}

// Enricher runs the per-record enrichment sub-flow: fetch the detail record
// for each summary and flatten the pair. Enrichment failure for one record
// never aborts the page; the unflattened summary is substituted instead.
type Enricher struct {
	fetch  DetailFunc
	delay  pagination.Delayer
	cache  DetailCache
	logger zerolog.Logger
}

// NewEnricher creates an enricher. cache may be nil.
func NewEnricher(fetch DetailFunc, delay pagination.Delayer, cache DetailCache, logger zerolog.Logger) *Enricher {
	return &Enricher{
		fetch:  fetch,
		delay:  delay,
		cache:  cache,
		logger: logger.With().Str("component", "enrich").Logger(),
	}
}

// EnrichPage enriches every record of one page in original order. lastPage
// suppresses the rate-limit suspension after the final record of the
// terminal page; every other detail fetch is followed by one. A context
// cancellation during a suspension returns the error; records enriched so
// far are not returned since the interrupted batch is abandoned.
func (e *Enricher) EnrichPage(ctx context.Context, records []api.Record, lastPage bool) ([]api.Record, error) {
	out := make([]api.Record, 0, len(records))
	for i, rec := range records {
		enriched, fetched := e.enrichOne(ctx, rec)
		out = append(out, enriched)

		finalRecord := lastPage && i == len(records)-1
		if fetched && !finalRecord {
			if err := e.delay.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// enrichOne returns the flattened record, or the original summary when the
// detail record cannot be obtained or is unusable. fetched reports whether
// a network request was issued (false on cache hits and fallbacks without a
// request).
func (e *Enricher) enrichOne(ctx context.Context, summary api.Record) (rec api.Record, fetched bool) {
	id := summary.ID()
	if id == "" {
		e.logger.Warn().Msg("Summary record has no id - keeping summary")
		enrichmentFallbacksTotal.WithLabelValues("missing_id").Inc()
		return summary, false
	}

	if e.cache != nil {
		if detail, err := e.cache.GetDetail(ctx, id); err == nil {
			enrichmentCacheHitsTotal.Inc()
			e.logger.Debug().Str("plant_id", id).Msg("Detail cache hit")
			return flatten.Flatten(summary, detail), false
		}
	}

	detail, err := e.fetch(ctx, id)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("plant_id", id).
			Msg("Detail fetch failed - keeping summary record")
		enrichmentFallbacksTotal.WithLabelValues("fetch_error").Inc()
		return summary, true
	}

	if len(detail) == 0 {
		e.logger.Warn().
			Str("plant_id", id).
			Msg("Detail record has no usable payload - keeping summary record")
		enrichmentFallbacksTotal.WithLabelValues("unusable_payload").Inc()
		return summary, true
	}

	if e.cache != nil {
		if err := e.cache.SetDetail(ctx, id, detail); err != nil {
			e.logger.Warn().Err(err).Str("plant_id", id).Msg("Detail cache store failed")
		}
	}

	return flatten.Flatten(summary, detail), true
}
