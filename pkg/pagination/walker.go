// Package pagination provides the sequential page walker for paginated
// plant API endpoints.
//
// The walk is strictly sequential: one page in flight at a time, with a
// rate-limit suspension between successive fetches. This is a deliberate
// throttling design, not an optimization gap; the provider's request budget
// is shared and parallel fetching is out of scope.
package pagination

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// Delayer is the rate-limit suspension invoked between page fetches.
type Delayer interface {
	Wait(ctx context.Context) error
}

// PageFetcher fetches a single page of an endpoint.
type PageFetcher func(ctx context.Context, page int) (*api.Page, error)

// PageFunc consumes one fetched page. last is true when no further page
// will be fetched after this one (ceiling reached or links.next absent).
type PageFunc func(page int, p *api.Page, last bool) error

// Options controls a single walk.
type Options struct {
	// StartPage is the first page number to fetch (default 1).
	StartPage int

	// MaxPages caps the number of pages fetched; 0 means no ceiling.
	MaxPages int
}

// Walker drives repeated calls against a paged endpoint.
type Walker struct {
	delay  Delayer
	logger zerolog.Logger
}

// NewWalker creates a walker using delay between page fetches.
func NewWalker(delay Delayer, logger zerolog.Logger) *Walker {
	return &Walker{
		delay:  delay,
		logger: logger.With().Str("component", "pagination").Logger(),
	}
}

// Walk fetches pages starting at opts.StartPage, incrementing by one per
// successful page, and hands each page to fn. It stops when the ceiling is
// reached, links.next is absent, or a page comes back empty. Fetch failures
// are not retried; the error propagates to the caller, which is expected to
// flush any partially accumulated batch before terminating the walk. The
// rate-limit suspension runs between successive fetches only, never after
// the terminal page.
func (w *Walker) Walk(ctx context.Context, fetch PageFetcher, opts Options, fn PageFunc) error {
	page := opts.StartPage
	if page <= 0 {
		page = 1
	}

	for walked := 0; ; page++ {
		if walked > 0 {
			if err := w.delay.Wait(ctx); err != nil {
				return err
			}
		}

		p, err := fetch(ctx, page)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}

		if p == nil || len(p.Data) == 0 {
			w.logger.Debug().
				Int("page", page).
				Msg("Empty page - ending walk")
			return nil
		}

		walked++
		last := p.Links.Next == "" || (opts.MaxPages > 0 && walked >= opts.MaxPages)

		w.logger.Debug().
			Int("page", page).
			Int("records", len(p.Data)).
			Bool("last", last).
			Msg("Page fetched")

		if err := fn(page, p, last); err != nil {
			return err
		}

		if last {
			return nil
		}
	}
}
