package gracenote

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// variantGroup is every provider title that folds to one logical film.
type variantGroup struct {
	title  string
	movies []Movie
	venues map[string]struct{}
}

func venueKey(t Theatre) string {
	if t.ID != "" {
		return t.ID
	}
	return strings.ToLower(strings.TrimSpace(t.Name))
}

// fold groups movies by base title in first-seen order. Venue coverage is the
// union across variants.
func fold(movies []Movie) []*variantGroup {
	var order []*variantGroup
	byKey := map[string]*variantGroup{}
	for _, m := range movies {
		key := match.FoldKey(m.Title)
		g, ok := byKey[key]
		if !ok {
			g = &variantGroup{title: match.BaseTitle(m.Title), venues: map[string]struct{}{}}
			byKey[key] = g
			order = append(order, g)
		}
		g.movies = append(g.movies, m)
		for _, s := range m.Showtimes {
			if s.Theatre.ID == "" && s.Theatre.Name == "" {
				continue
			}
			g.venues[venueKey(s.Theatre)] = struct{}{}
		}
	}
	return order
}

// Fetch returns one Theater per venue showing q.MovieTitle. It never fails:
// errors are logged and read as no results.
func (c *Client) Fetch(ctx context.Context, q showtime.Query) ([]showtime.Theater, error) {
	zip := c.zips.Resolve(q.Location)
	movies, err := c.Showings(ctx, q.Date, zip)
	if err != nil {
		c.log.Errorf("showings for %q: %v", q.MovieTitle, err)
		return nil, nil
	}

	var matched []Movie
	for _, m := range movies {
		if match.Titles(m.Title, q.MovieTitle) {
			matched = append(matched, m)
		}
	}
	if len(matched) == 0 {
		c.log.Infof("no movie matching %q among %d titles", q.MovieTitle, len(movies))
		return nil, nil
	}

	groups := fold(matched)
	// A film whose base title equals the query beats looser matches such as
	// a sequel found by containment.
	want := match.FoldKey(q.MovieTitle)
	var exact []*variantGroup
	for _, g := range groups {
		if match.FoldKey(g.title) == want {
			exact = append(exact, g)
		}
	}
	if len(exact) > 0 {
		groups = exact
	}

	for _, g := range groups {
		c.log.Infof("%q: %d venues across %d variants", g.title, len(g.venues), len(g.movies))
	}
	return buildTheaters(groups), nil
}

func buildTheaters(groups []*variantGroup) []showtime.Theater {
	var order []string
	byVenue := map[string]*showtime.Theater{}
	for _, g := range groups {
		for _, m := range g.movies {
			for _, s := range m.Showtimes {
				if s.Theatre.ID == "" && s.Theatre.Name == "" {
					continue
				}
				clock, err := showtime.ParseClock(s.DateTime)
				if err != nil {
					continue
				}
				key := venueKey(s.Theatre)
				t, ok := byVenue[key]
				if !ok {
					t = &showtime.Theater{Name: strings.TrimSpace(s.Theatre.Name), Source: SourceName, VenueID: s.Theatre.ID}
					byVenue[key] = t
					order = append(order, key)
				}
				format := match.DetectFormat(match.Signals{Qualifiers: s.Quals, Title: m.Title})
				t.Slots = append(t.Slots, showtime.Slot{Time: clock, Format: format, Available: true})
				if t.BookingURL == "" && s.TicketURI != "" {
					t.BookingURL = s.TicketURI
				}
			}
		}
	}

	out := make([]showtime.Theater, 0, len(order))
	for _, key := range order {
		t := byVenue[key]
		t.Slots = showtime.NormalizeSlots(t.Slots)
		if len(t.Slots) == 0 {
			continue
		}
		out = append(out, *t)
	}
	showtime.SortTheaters(out)
	return out
}

// LocalMovie summarizes one film showing in the area.
type LocalMovie struct {
	Title        string   `json:"title"`
	TMSID        string   `json:"tmsId"`
	ReleaseYear  int      `json:"releaseYear,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Description  string   `json:"description,omitempty"`
	TheaterCount int      `json:"theaterCount"`
}

// LocalMovies lists every film showing near zip on date, format variants
// folded together, most widely shown first.
func (c *Client) LocalMovies(ctx context.Context, date time.Time, zip string) ([]LocalMovie, error) {
	movies, err := c.Showings(ctx, date, zip)
	if err != nil {
		return nil, err
	}
	groups := fold(movies)
	out := make([]LocalMovie, 0, len(groups))
	for _, g := range groups {
		first := g.movies[0]
		desc := first.ShortDescription
		if desc == "" {
			desc = first.LongDescription
		}
		out = append(out, LocalMovie{
			Title:        g.title,
			TMSID:        first.TMSID,
			ReleaseYear:  first.ReleaseYear,
			Genres:       first.Genres,
			Description:  desc,
			TheaterCount: len(g.venues),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TheaterCount != out[j].TheaterCount {
			return out[i].TheaterCount > out[j].TheaterCount
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out, nil
}

// Venues lists every theatre showing anything near zip on date, one entry
// per venue, sorted by name.
func (c *Client) Venues(ctx context.Context, date time.Time, zip string) ([]showtime.Theater, error) {
	movies, err := c.Showings(ctx, date, zip)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []showtime.Theater
	for _, m := range movies {
		for _, s := range m.Showtimes {
			name := strings.TrimSpace(s.Theatre.Name)
			if name == "" {
				continue
			}
			key := venueKey(s.Theatre)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, showtime.Theater{Name: name, Source: SourceName, VenueID: s.Theatre.ID})
		}
	}
	showtime.SortTheaters(out)
	return out, nil
}
