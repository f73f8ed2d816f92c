package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// CinemarkName is the source name of the Cinemark scraper.
const CinemarkName = "cinemark"

// CinemarkBaseURL is the chain's public site.
const CinemarkBaseURL = "https://www.cinemark.com"

// CinemarkVenues is the built-in registry of Utah Cinemark venues.
var CinemarkVenues = []Venue{
	{Key: "draper", Slug: "ut-draper/draper-and-xd", Name: "Cinemark Draper and XD", Address: "12129 S State St, Draper, UT 84020", VenueID: "cinemark:draper"},
	{Key: "university-mall", Slug: "ut-orem/university-mall", Name: "Cinemark University Mall", Address: "1010 S 800 E, Orem, UT 84097", VenueID: "cinemark:university-mall"},
	{Key: "provo", Slug: "ut-provo/16-provo", Name: "Cinemark 16 Provo", Address: "2424 N University Pkwy, Provo, UT 84604", VenueID: "cinemark:provo"},
	{Key: "sugarhouse", Slug: "ut-salt-lake-city/sugarhouse", Name: "Cinemark Sugarhouse", Address: "2227 S Highland Dr, Salt Lake City, UT 84106", VenueID: "cinemark:sugarhouse"},
	{Key: "logan", Slug: "ut-logan/movies-10", Name: "Cinemark Movies 10", Address: "1150 N 200 W, Logan, UT 84341", VenueID: "cinemark:logan"},
	{Key: "st-george", Slug: "ut-st-george/st-george-and-xd", Name: "Cinemark St. George", Address: "1091 N Bluff St, St. George, UT 84770", VenueID: "cinemark:st-george"},
}

var cinemarkSections = sectionSelectors{
	Section: `.movie-container, .movie-info, [data-movie]`,
	Title:   `.movie-name, .movie-title, h3`,
	Slot:    `.showtime-btn, .showtime, button[data-showtime]`,
	Address: `.theatre-address, .address`,
}

// Cinemark scrapes cinemark.com theatre pages, falling back to the site's
// showtimes endpoint when the page itself yields nothing structured.
type Cinemark struct {
	runner
	venues  []Venue
	settle  time.Duration
	baseURL string
	probe   *Probe
}

// NewCinemark returns the Cinemark source. probe may be nil.
func NewCinemark(opts Options, probe *Probe) *Cinemark {
	venues := opts.Venues
	if len(venues) == 0 {
		venues = CinemarkVenues
	}
	return &Cinemark{
		runner:  newRunner(CinemarkName, opts),
		venues:  venues,
		settle:  opts.settle(),
		baseURL: CinemarkBaseURL,
		probe:   probe,
	}
}

// Name implements showtime.Source.
func (c *Cinemark) Name() string { return CinemarkName }

// Fetch implements showtime.Source.
func (c *Cinemark) Fetch(ctx context.Context, q showtime.Query) ([]showtime.Theater, error) {
	return c.run(ctx, q, c.venues, c.scrape)
}

func (c *Cinemark) scrape(ctx context.Context, page browser.Page, v Venue, q showtime.Query) (showtime.Theater, error) {
	page.Observe(isJSONCapture("cinemark.com"))
	target := fmt.Sprintf("%s/theatres/%s?showDate=%s", c.baseURL, v.Slug, q.DateString())
	if err := page.Navigate(ctx, target); err != nil {
		return showtime.Theater{}, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.Settle(ctx, c.settle); err != nil {
		return showtime.Theater{}, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return showtime.Theater{}, fmt.Errorf("read page: %w", err)
	}
	doc, err := parseHTML(html)
	if err != nil {
		return showtime.Theater{}, fmt.Errorf("parse page: %w", err)
	}
	captured := page.Captured(ctx)
	var movies []apiMovie
	for _, r := range captured {
		movies = append(movies, decodeMovies(r.Body)...)
	}

	title := q.MovieTitle
	var probed []apiMovie
	ex := firstNonEmpty(ctx, c.log,
		step{"intercepted json", func(context.Context) extraction { return fromAPI(movies, title) }},
		step{"showtimes endpoint", func(ctx context.Context) extraction {
			if c.probe == nil {
				return extraction{}
			}
			got, err := c.probe.Showtimes(ctx, v.Slug, q.DateString())
			if err != nil {
				c.log.Debugf("%s: %v", v.Name, err)
				return extraction{}
			}
			probed = got
			return fromAPI(got, title)
		}},
		step{"movie section", func(context.Context) extraction { return parseSections(doc, cinemarkSections, title) }},
		step{"text scan", func(context.Context) extraction { return scanText(html, title) }},
	)
	if ex.empty() {
		titles := append(apiTitles(captured), listedTitles(doc, cinemarkSections)...)
		for _, m := range probed {
			titles = append(titles, m.displayTitle())
		}
		if !listed(titles, title) {
			return showtime.Theater{}, fmt.Errorf("%q: %w", title, showtime.ErrMovieNotFound)
		}
		return showtime.Theater{}, errNoSlots
	}
	return showtime.Theater{Name: v.Name, Address: ex.Address, Slots: ex.Slots, BookingURL: target}, nil
}
