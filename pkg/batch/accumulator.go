// Package batch accumulates processed records across consecutive pages and
// flushes them as single output units, and implements the per-record
// enrichment sub-flow.
package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// Pages folded into one batch before it flushes. Enriched batches are
// smaller because each page costs one detail fetch per record.
const (
	PagesPerBatchEnriched = 5
	PagesPerBatch         = 10
)

// Prometheus metrics for batch operations.
var (
	batchesFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_batches_flushed_total",
		Help: "Total number of batches flushed to the file writer",
	})

	recordsFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trefle_records_flushed_total",
		Help: "Total number of records flushed to the file writer",
	})
)

// FlushFunc receives a closed batch: the accumulated records plus the page
// span they cover, as one output unit.
type FlushFunc func(records []api.Record, startPage, endPage int) error

// Accumulator buffers records across consecutive pages. It is owned
// exclusively by the fetch loop that created it and must not be shared.
type Accumulator struct {
	size   int
	flush  FlushFunc
	logger zerolog.Logger

	records   []api.Record
	startPage int
	endPage   int
	pages     int
}

// NewAccumulator creates an accumulator that flushes after size pages.
func NewAccumulator(size int, flush FlushFunc, logger zerolog.Logger) *Accumulator {
	if size <= 0 {
		size = PagesPerBatch
	}
	return &Accumulator{
		size:   size,
		flush:  flush,
		logger: logger.With().Str("component", "batch").Logger(),
	}
}

// Add folds one page's records into the open batch and flushes when the
// batch reaches its page size. The records may be empty (dry run); the page
// still counts toward the batch boundary.
func (a *Accumulator) Add(page int, records []api.Record) error {
	if a.pages == 0 {
		a.startPage = page
	}
	a.records = append(a.records, records...)
	a.endPage = page
	a.pages++

	if a.pages >= a.size {
		return a.flushNow("batch full")
	}
	return nil
}

// Finish flushes a partial batch at a boundary condition (ceiling reached,
// natural end of pagination, or a mid-walk error). Partial batches are
// flushed, never discarded. A no-op when nothing is accumulated.
func (a *Accumulator) Finish() error {
	if a.pages == 0 {
		return nil
	}
	return a.flushNow("end of walk")
}

// Pages reports how many pages the open batch currently spans.
func (a *Accumulator) Pages() int {
	return a.pages
}

// Len reports how many records the open batch currently holds.
func (a *Accumulator) Len() int {
	return len(a.records)
}

func (a *Accumulator) flushNow(reason string) error {
	a.logger.Info().
		Int("batch_start", a.startPage).
		Int("batch_end", a.endPage).
		Int("pages", a.pages).
		Int("records", len(a.records)).
		Str("reason", reason).
		Msg("Flushing batch")

	batchesFlushedTotal.Inc()
	recordsFlushedTotal.Add(float64(len(a.records)))

	err := a.flush(a.records, a.startPage, a.endPage)

	// Reset regardless of flush outcome; the next batch starts one past
	// the last page handed over.
	a.records = nil
	a.pages = 0
	a.startPage = a.endPage + 1

	return err
}
