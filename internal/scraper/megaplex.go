package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// MegaplexName is the source name of the Megaplex scraper.
const MegaplexName = "megaplex"

// MegaplexBaseURL is the chain's public site.
const MegaplexBaseURL = "https://megaplex.com"

// MegaplexVenues is the built-in Megaplex registry.
var MegaplexVenues = []Venue{
	{Key: "jordan-commons", Slug: "jordancommons", Name: "Megaplex Jordan Commons", Address: "9400 S State St, Sandy, UT 84070", VenueID: "megaplex:7"},
	{Key: "lehi", Slug: "thanksgivingpoint", Name: "Megaplex Thanksgiving Point", Address: "2935 N Thanksgiving Way, Lehi, UT 84043", VenueID: "megaplex:18"},
}

var megaplexSections = sectionSelectors{
	Section: `.movie-card, .film-card, [data-movie-title], [class*="movie"], [class*="film"], article`,
	Title:   `.movie-title, .film-title, h2, h3, h4, [class*="title"]`,
	Slot:    `.showtime, .time-btn, [data-showtime], time, [class*="mp-showing"]`,
}

const (
	// Elements shown once a movie card is opened.
	megaplexShowings = `time, [class*="mp-showing"], [class*="showtime"], article[class*="showing"]`
	megaplexCards    = `[class*="movie"], [class*="card"], [class*="film"], article`
	megaplexDates    = `button, a, [role="tab"], [class*="date"], [class*="day"]`
)

// Megaplex scrapes megaplex.com venue pages. The site renders client side, so
// showtimes come from its API traffic when possible and from the DOM after
// choosing the date and opening the movie otherwise.
type Megaplex struct {
	runner
	venues  []Venue
	settle  time.Duration
	baseURL string
	now     func() time.Time
}

// NewMegaplex returns the Megaplex source.
func NewMegaplex(opts Options) *Megaplex {
	venues := opts.Venues
	if len(venues) == 0 {
		venues = MegaplexVenues
	}
	return &Megaplex{
		runner:  newRunner(MegaplexName, opts),
		venues:  venues,
		settle:  opts.settle(),
		baseURL: MegaplexBaseURL,
		now:     time.Now,
	}
}

// Name implements showtime.Source.
func (m *Megaplex) Name() string { return MegaplexName }

// Fetch implements showtime.Source.
func (m *Megaplex) Fetch(ctx context.Context, q showtime.Query) ([]showtime.Theater, error) {
	return m.run(ctx, q, m.venues, m.scrape)
}

func (m *Megaplex) scrape(ctx context.Context, page browser.Page, v Venue, q showtime.Query) (showtime.Theater, error) {
	page.Observe(isJSONCapture("megaplex.com"))
	venueURL := m.baseURL + "/" + v.Slug
	target := venueURL + "?date=" + q.DateString()
	if err := page.Navigate(ctx, target); err != nil {
		return showtime.Theater{}, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.Settle(ctx, m.settle); err != nil {
		return showtime.Theater{}, err
	}

	if picked := m.selectDate(ctx, page, q.Date); picked != "" {
		m.log.Debugf("%s: date chosen by %s", v.Name, picked)
	}
	opened := m.openMovie(ctx, page, q.MovieTitle)

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
	ex := firstNonEmpty(ctx, m.log,
		step{"intercepted json", func(context.Context) extraction { return fromAPI(movies, title) }},
		step{"movie section", func(context.Context) extraction { return parseSections(doc, megaplexSections, title) }},
		step{"opened showings", func(context.Context) extraction {
			if !opened {
				return extraction{}
			}
			return extraction{Slots: readSlots(doc.Find(megaplexShowings), title)}
		}},
		step{"text scan", func(context.Context) extraction { return scanText(html, title) }},
	)
	if ex.empty() {
		if !opened && !listed(append(apiTitles(captured), listedTitles(doc, megaplexSections)...), title) {
			return showtime.Theater{}, fmt.Errorf("%q: %w", title, showtime.ErrMovieNotFound)
		}
		return showtime.Theater{}, errNoSlots
	}
	return showtime.Theater{Name: v.Name, Address: ex.Address, Slots: ex.Slots, BookingURL: venueURL}, nil
}

type dateMatcher struct {
	name    string
	pattern string
}

// dateMatchers lists the date-control patterns to try for d, most specific
// first. The bare weekday is only unambiguous within the coming week.
func dateMatchers(d, today time.Time) []dateMatcher {
	day := strconv.Itoa(d.Day())
	weekday := regexp.QuoteMeta(d.Format("Mon"))
	month := regexp.QuoteMeta(d.Format("Jan"))
	matchers := []dateMatcher{
		{"day-of-month", `^(?:[a-z]{3,9}\.?,?\s+)?` + day + `$`},
	}
	ahead := int(d.Sub(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if ahead > 0 && ahead < 7 {
		matchers = append(matchers, dateMatcher{"day-name", `^` + weekday + `[a-z]*\.?$`})
	}
	matchers = append(matchers, dateMatcher{"month-day", `\b` + month + `[a-z]*\.?\s+` + day + `\b`})
	return matchers
}

// selectDate clicks the first date control matching the query date and
// returns the matcher that worked. The page default is kept for today or
// when nothing matches.
func (m *Megaplex) selectDate(ctx context.Context, page browser.Page, d time.Time) string {
	today := m.now()
	if showtime.FormatDate(today) == showtime.FormatDate(d) {
		return ""
	}
	for _, dm := range dateMatchers(d, today) {
		var clicked bool
		if err := page.Evaluate(ctx, clickByTextJS(megaplexDates, dm.pattern), &clicked); err != nil {
			m.log.Debugf("date matcher %s: %v", dm.name, err)
			continue
		}
		if clicked {
			_ = page.Settle(ctx, m.settle)
			return dm.name
		}
	}
	return ""
}

// openMovie clicks the card of the requested movie so its showtimes render.
func (m *Megaplex) openMovie(ctx context.Context, page browser.Page, title string) bool {
	terms := []string{strings.ToLower(title)}
	if lead := strings.ToLower(match.Leading(title)); lead != terms[0] {
		terms = append(terms, lead)
	}
	var clicked bool
	if err := page.Evaluate(ctx, clickMovieJS(megaplexCards, terms), &clicked); err != nil {
		m.log.Debugf("open movie %q: %v", title, err)
		return false
	}
	if clicked {
		_ = page.Settle(ctx, m.settle)
	}
	return clicked
}
