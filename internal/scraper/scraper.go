// Package scraper pulls showtimes for one movie from theater-chain websites
// by driving a headless browser through each venue's listing page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// DefaultSettle is how long a page is left alone after navigation so that
// client-side rendering and late XHRs can finish.
const DefaultSettle = 3 * time.Second

// DefaultVenueTimeout bounds one venue's scrape when Options.VenueTimeout is
// not set.
const DefaultVenueTimeout = 2 * time.Minute

// Venue is one entry of a chain's fixed venue registry.
type Venue struct {
	// Key is the short registry name, e.g. "jordan-commons".
	Key string
	// Slug is the chain's URL path segment for the venue.
	Slug    string
	Name    string
	Address string
	// VenueID is stable across runs and used when merging with other sources.
	VenueID string
}

// Pages hands out browser pages. *browser.Manager implements it.
type Pages interface {
	Acquire(ctx context.Context) (browser.Page, func(), error)
}

// Options configure a chain scraper.
type Options struct {
	Pages Pages
	// Cache is optional; nil disables the per-venue short-circuit.
	Cache *cache.Cache
	// Settle overrides DefaultSettle. Negative means no wait.
	Settle time.Duration
	// Venues overrides the chain's built-in registry.
	Venues []Venue
	// VenueTimeout bounds everything done on one venue's page. An expired
	// venue is dropped and the chain moves on. Zero means DefaultVenueTimeout.
	VenueTimeout time.Duration
}

func (o Options) venueTimeout() time.Duration {
	if o.VenueTimeout > 0 {
		return o.VenueTimeout
	}
	return DefaultVenueTimeout
}

func (o Options) settle() time.Duration {
	switch {
	case o.Settle < 0:
		return 0
	case o.Settle == 0:
		return DefaultSettle
	}
	return o.Settle
}

// errNoSlots marks a venue that lists the movie but yielded no times.
var errNoSlots = errors.New("no showtimes extracted")

// scrapeFunc extracts one venue's showtimes from a freshly acquired page.
type scrapeFunc func(ctx context.Context, page browser.Page, v Venue, q showtime.Query) (showtime.Theater, error)

// runner is the per-venue loop every chain shares: filter, cache, page
// lifecycle, error isolation and write-back.
type runner struct {
	source  string
	pages   Pages
	cache   *cache.Cache
	timeout time.Duration
	log     logger.Logger
}

func newRunner(source string, opts Options) runner {
	return runner{
		source:  source,
		pages:   opts.Pages,
		cache:   opts.Cache,
		timeout: opts.venueTimeout(),
		log:     logger.Named(source),
	}
}

func (r *runner) run(ctx context.Context, q showtime.Query, venues []Venue, scrape scrapeFunc) ([]showtime.Theater, error) {
	date := q.DateString()
	filter := strings.ToLower(strings.TrimSpace(q.Venue))

	var out []showtime.Theater
	for _, v := range venues {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if filter != "" && !strings.Contains(strings.ToLower(v.Name), filter) {
			continue
		}
		if t, ok := r.cache.Get(ctx, r.source, v.Name, q.MovieTitle, date); ok {
			r.log.Debugf("%s: cache hit", v.Name)
			out = append(out, t)
			continue
		}

		t, err := r.venue(ctx, q, v, scrape)
		switch {
		case err == nil:
		case errors.Is(err, showtime.ErrSourceUnavailable), errors.Is(err, browser.ErrClosed):
			return nil, fmt.Errorf("%s: %w", r.source, err)
		case errors.Is(err, showtime.ErrMovieNotFound), errors.Is(err, errNoSlots):
			r.log.Infof("%s: %v", v.Name, err)
			continue
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			r.log.Warnf("%s: gave up after %s: %v", v.Name, r.timeout, err)
			continue
		default:
			r.log.Warnf("%s: %v", v.Name, err)
			continue
		}

		r.cache.Set(ctx, r.source, v.Name, q.MovieTitle, date, t)
		out = append(out, t)
	}
	return out, nil
}

// venue scrapes a single venue, converting a panic into an error.
func (r *runner) venue(ctx context.Context, q showtime.Query, v Venue, scrape scrapeFunc) (t showtime.Theater, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("%s: panic: %v\n%s", v.Name, rec, debug.Stack())
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	page, release, err := r.pages.Acquire(ctx)
	if err != nil {
		if errors.Is(err, showtime.ErrSourceUnavailable) || errors.Is(err, browser.ErrClosed) {
			return showtime.Theater{}, err
		}
		return showtime.Theater{}, fmt.Errorf("acquire page: %w", err)
	}
	defer release()

	venueCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	t, err = scrape(venueCtx, page, v, q)
	if err != nil {
		return showtime.Theater{}, err
	}
	t.Slots = showtime.NormalizeSlots(t.Slots)
	if len(t.Slots) == 0 {
		return showtime.Theater{}, errNoSlots
	}
	if t.Name == "" {
		t.Name = v.Name
	}
	if t.Address == "" {
		t.Address = v.Address
	}
	t.Source = r.source
	t.VenueID = v.VenueID
	r.log.Infof("%s: %d showtimes in %s", v.Name, len(t.Slots), time.Since(start).Round(time.Millisecond))
	return t, nil
}
