// Package app assembles the showtime engine from configuration. Both the MCP
// server and the operator CLI build their engine here.
package app

import (
	"github.com/leonardcser/showtime-mcp/internal/aggregator"
	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/gracenote"
	"github.com/leonardcser/showtime-mcp/internal/location"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/scraper"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// App owns the engine and every long-lived resource behind it.
type App struct {
	Engine *aggregator.Engine
	// Cache is nil when no backend could be opened.
	Cache *cache.Cache
	// Gracenote is nil without an API key.
	Gracenote *gracenote.Client
	Zips      *location.Resolver

	managers []*browser.Manager
}

// Options override pieces of the assembly, mainly for tests.
type Options struct {
	// Launcher replaces the Chromium launcher.
	Launcher browser.Launcher
}

// New wires browsers, scrapers, the structured source and the aggregator.
// backend may be nil, in which case nothing is cached. Browsers start on
// first use.
func New(cfg config.Config, backend cache.Backend, opts Options) *App {
	log := logger.Named("app")
	a := &App{Zips: location.NewResolver(cfg.DefaultZip)}
	if backend != nil {
		a.Cache = cache.New(backend, cfg.CacheTTL)
	}

	launch := opts.Launcher
	if launch == nil {
		launch = browser.ChromeLauncher(browser.ChromeOptions{ExecPath: cfg.ChromiumPath, Headless: cfg.Headless})
	}
	bopts := browser.Options{
		RateLimit:         cfg.RateLimit,
		NavigationTimeout: cfg.NavigationTimeout,
		Slots:             browser.NewSlots(cfg.MaxConcurrent),
	}
	megaplexPages := browser.NewManager(scraper.MegaplexName, launch, bopts)
	cinemarkPages := browser.NewManager(scraper.CinemarkName, launch, bopts)
	a.managers = []*browser.Manager{megaplexPages, cinemarkPages}

	// One navigation, up to four settles and the Cinemark endpoint probe.
	venueTimeout := cfg.NavigationTimeout + 4*cfg.SettleDelay + scraper.ProbeTimeout
	sopts := func(pages scraper.Pages) scraper.Options {
		return scraper.Options{Pages: pages, Cache: a.Cache, Settle: cfg.SettleDelay, VenueTimeout: venueTimeout}
	}
	scrapers := []showtime.Source{
		scraper.NewMegaplex(sopts(megaplexPages)),
		scraper.NewCinemark(sopts(cinemarkPages), scraper.NewProbe(scraper.CinemarkBaseURL, cfg.RateLimit)),
	}

	var structured showtime.Source
	if cfg.HasGracenote() {
		gn, err := gracenote.New(cfg.GracenoteAPIKey, cfg.GracenoteBaseURL,
			gracenote.WithRadius(cfg.RadiusMiles), gracenote.WithResolver(a.Zips))
		if err != nil {
			log.Warnf("structured source disabled: %v", err)
		} else {
			a.Gracenote = gn
			structured = gn
		}
	} else {
		log.Infof("GRACENOTE_API_KEY not set; structured source disabled")
	}

	eopts := []aggregator.Option{
		aggregator.WithCache(a.Cache),
		aggregator.WithResolver(a.Zips),
		aggregator.WithSourceTimeout(cfg.SourceTimeout),
		aggregator.WithDirectory(Directory()),
	}
	if a.Gracenote != nil {
		eopts = append(eopts, aggregator.WithVenueLister(a.Gracenote))
	}
	a.Engine = aggregator.New(structured, scrapers, eopts...)
	return a
}

// Directory is every venue the scrapers cover plus the other known Utah
// venues.
func Directory() []showtime.Theater {
	var out []showtime.Theater
	for _, registry := range [][]scraper.Venue{scraper.MegaplexVenues, scraper.CinemarkVenues} {
		for _, v := range registry {
			out = append(out, showtime.Theater{Name: v.Name, Address: v.Address, VenueID: v.VenueID})
		}
	}
	return append(out, aggregator.UtahVenues...)
}

// Close shuts the browsers down and closes the cache backend.
func (a *App) Close() error {
	for _, m := range a.managers {
		m.Shutdown()
	}
	return a.Cache.Close()
}
