// Package aggregator answers showtime queries by consulting the cache, fanning
// out to every source on a miss, merging the answers by venue and writing
// them back.
package aggregator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/location"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// DefaultSourceTimeout bounds one source call.
const DefaultSourceTimeout = 3 * time.Minute

// CombinedSource is the cache source prefix for merged results; the resolved
// zip is appended so different areas never share rows.
const CombinedSource = "combined:"

// Engine is the single entry point collaborators call.
type Engine struct {
	structured showtime.Source
	scrapers   []showtime.Source
	cache      *cache.Cache
	zips       *location.Resolver
	timeout    time.Duration
	log        logger.Logger

	lister    VenueLister
	directory []showtime.Theater
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables the combined-result cache.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithResolver sets how query locations become zip codes.
func WithResolver(r *location.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.zips = r
		}
	}
}

// WithSourceTimeout bounds each source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New returns an Engine over the structured source and the chain scrapers.
// structured may be nil when the API is not configured.
func New(structured showtime.Source, scrapers []showtime.Source, opts ...Option) *Engine {
	e := &Engine{
		structured: structured,
		scrapers:   scrapers,
		zips:       location.NewResolver(location.DefaultZip),
		timeout:    DefaultSourceTimeout,
		log:        logger.Named("aggregator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch returns every venue showing q.MovieTitle on q.Date near q.Location,
// one entry per venue, sorted by venue name. It never fails: unavailable
// sources contribute nothing and an empty list means no results.
func (e *Engine) Fetch(ctx context.Context, q showtime.Query) []showtime.Theater {
	log := e.log.With(uuid.NewString()[:8])
	start := time.Now()

	zip := e.zips.Resolve(q.Location)
	q.Location = zip
	source := CombinedSource + zip
	date := q.DateString()

	if hit := e.cache.GetAll(ctx, source, q.MovieTitle, date); len(hit) > 0 {
		log.Infof("%q %s %s: %d venues from cache", q.MovieTitle, date, zip, len(hit))
		return hit
	}

	var structured []showtime.Theater
	scraped := make([][]showtime.Theater, len(e.scrapers))
	var wg sync.WaitGroup
	if e.structured != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			structured = e.call(ctx, log, e.structured, q)
		}()
	}
	for i, src := range e.scrapers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scraped[i] = e.call(ctx, log, src, q)
		}()
	}
	wg.Wait()

	var all []showtime.Theater
	for _, list := range scraped {
		all = append(all, list...)
	}
	merged := Merge(all, structured)

	for _, t := range merged {
		e.cache.Set(ctx, source, combinedVenueKey(t), q.MovieTitle, date, t)
	}
	log.Infof("%q %s %s: %d venues (%d scraped, %d structured) in %s",
		q.MovieTitle, date, zip, len(merged), len(all), len(structured), time.Since(start).Round(time.Millisecond))
	return merged
}

// combinedVenueKey names a merged row in the cache. Distinct venues can share
// a display name but never an ID.
func combinedVenueKey(t showtime.Theater) string {
	if t.VenueID != "" {
		return t.VenueID
	}
	return t.Name
}

type callResult struct {
	theaters []showtime.Theater
	err      error
}

// call runs one source under the per-source timeout. Errors, panics and
// timeouts are logged and read as no results. A source that ignores its
// context is abandoned when the timeout fires.
func (e *Engine) call(ctx context.Context, log logger.Logger, src showtime.Source, q showtime.Query) []showtime.Theater {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("%s: panic: %v\n%s", src.Name(), rec, debug.Stack())
				done <- callResult{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		list, err := src.Fetch(ctx, q)
		done <- callResult{theaters: list, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			log.Warnf("%s: %v", src.Name(), r.err)
			return nil
		}
		log.Debugf("%s: %d venues", src.Name(), len(r.theaters))
		return r.theaters
	case <-ctx.Done():
		log.Warnf("%s: %v", src.Name(), ctx.Err())
		return nil
	}
}
