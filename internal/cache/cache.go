// Package cache stores per-venue showtime results with a time-to-live on top
// of a pluggable Backend. Every read re-checks expiry, so correctness never
// depends on the sweep running.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = 6 * time.Hour

// Cache is the fail-open facade used by sources and the aggregator. A nil
// *Cache behaves as an always-empty cache.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New wraps backend.
func New(backend Backend, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{backend: backend, ttl: ttl, now: time.Now, log: logger.Named("cache")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL reports the lifetime given to new entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) key(source, venue, movie, date string) Key {
	return Key{
		Source: source,
		Venue:  strings.TrimSpace(venue),
		Movie:  match.Normalize(movie),
		Date:   date,
	}
}

// Get returns the cached theater for the key while it is live. Misses and
// backend faults both read as absent.
func (c *Cache) Get(ctx context.Context, source, venue, movie, date string) (showtime.Theater, bool) {
	if c == nil {
		return showtime.Theater{}, false
	}
	e, err := c.backend.Load(ctx, c.key(source, venue, movie, date))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warnf("get %s/%s: %v", source, venue, fmt.Errorf("%w: %w", showtime.ErrCacheUnavailable, err))
		}
		return showtime.Theater{}, false
	}
	if !e.Live(c.now()) {
		return showtime.Theater{}, false
	}
	return e.Theater, true
}

// Set upserts t with ExpiresAt = now + TTL. Failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, source, venue, movie, date string, t showtime.Theater) {
	if c == nil {
		return
	}
	now := c.now()
	e := Entry{
		Key:       c.key(source, venue, movie, date),
		Theater:   t,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.backend.Upsert(ctx, e); err != nil {
		c.log.Warnf("set %s/%s: %v", source, venue, fmt.Errorf("%w: %w", showtime.ErrCacheUnavailable, err))
	}
}

// Entries lists the live entries for (source, movie, date).
func (c *Cache) Entries(ctx context.Context, source, movie, date string) []Entry {
	if c == nil {
		return nil
	}
	all, err := c.backend.List(ctx, source, match.Normalize(movie), date)
	if err != nil {
		c.log.Warnf("list %s: %v", source, fmt.Errorf("%w: %w", showtime.ErrCacheUnavailable, err))
		return nil
	}
	now := c.now()
	live := all[:0]
	for _, e := range all {
		if e.Live(now) {
			live = append(live, e)
		}
	}
	return live
}

// GetAll returns every live venue cached under source for the movie and date,
// sorted by venue name. An empty result is a miss.
func (c *Cache) GetAll(ctx context.Context, source, movie, date string) []showtime.Theater {
	entries := c.Entries(ctx, source, movie, date)
	if len(entries) == 0 {
		return nil
	}
	out := make([]showtime.Theater, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Theater)
	}
	showtime.SortTheaters(out)
	return out
}

// ClearExpired deletes dead rows and reports how many were removed.
func (c *Cache) ClearExpired(ctx context.Context) int {
	if c == nil {
		return 0
	}
	n, err := c.backend.DeleteExpired(ctx, c.now())
	if err != nil {
		c.log.Warnf("clear expired: %v", err)
		return 0
	}
	if n > 0 {
		c.log.Infof("cleared %d expired entries", n)
	}
	return n
}

// Sweep calls ClearExpired every interval until ctx is done.
func (c *Cache) Sweep(ctx context.Context, every time.Duration) {
	if c == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ClearExpired(ctx)
		}
	}
}

// Close closes the backend.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.backend.Close()
}
