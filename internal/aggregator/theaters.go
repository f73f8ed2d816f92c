package aggregator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/location"
	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// ChainOther tags venues of no known chain.
const ChainOther = "other"

// Listing is one venue found by a theater search.
type Listing struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Chain   string `json:"chain"`
	VenueID string `json:"venueId,omitempty"`
	// Source is the provider that reported the venue, or "directory".
	Source string `json:"source"`
}

// DirectorySource marks listings that came from the built-in directory.
const DirectorySource = "directory"

// VenueLister reports the venues near a zip. *gracenote.Client implements it.
type VenueLister interface {
	Venues(ctx context.Context, date time.Time, zip string) ([]showtime.Theater, error)
}

// WithVenueLister sets the live venue search used by Theaters.
func WithVenueLister(l VenueLister) Option {
	return func(e *Engine) { e.lister = l }
}

// WithDirectory sets the known venues Theaters falls back on. Entries need a
// name and should carry a street address ending in a zip.
func WithDirectory(venues []showtime.Theater) Option {
	return func(e *Engine) { e.directory = venues }
}

// Theaters lists the venues near a zip or city name. Live results come first;
// directory venues in the same region fill the gaps. Megaplex venues sort
// first, then by name.
func (e *Engine) Theaters(ctx context.Context, hint string) []Listing {
	zip := e.zips.Resolve(hint)
	log := e.log.With("theaters " + zip)

	var found []showtime.Theater
	if e.lister != nil {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		live, err := e.lister.Venues(ctx, time.Now(), zip)
		cancel()
		if err != nil {
			log.Warnf("venue search: %v", err)
		}
		found = live
	}

	kept := make([]showtime.Theater, 0, len(found)+len(e.directory))
	add := func(t showtime.Theater) {
		for i := range kept {
			if SameVenue(kept[i], t) {
				if kept[i].Address == "" {
					kept[i].Address = t.Address
				}
				return
			}
		}
		kept = append(kept, t)
	}
	for _, t := range found {
		add(t)
	}
	for _, t := range nearby(e.directory, zip) {
		add(t)
	}

	out := make([]Listing, 0, len(kept))
	for _, t := range kept {
		chain := chainOf(match.Normalize(t.Name))
		if chain == "" {
			chain = ChainOther
		}
		source := t.Source
		if source == "" {
			source = DirectorySource
		}
		out = append(out, Listing{Name: t.Name, Address: t.Address, Chain: chain, VenueID: t.VenueID, Source: source})
	}
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].Chain == "megaplex", out[j].Chain == "megaplex"
		if mi != mj {
			return mi
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	log.Infof("%d venues (%d live)", len(out), len(found))
	return out
}

// nearby keeps the directory venues in zip's region. An unknown region, or a
// region with no directory venue, keeps everything.
func nearby(directory []showtime.Theater, zip string) []showtime.Theater {
	region := location.Region(zip)
	if region == "" {
		return directory
	}
	var out []showtime.Theater
	for _, t := range directory {
		if location.Region(location.ZipOf(t.Address)) == region {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return directory
	}
	return out
}

// UtahVenues lists venues no chain scraper covers, so theater searches still
// find them without the live API.
var UtahVenues = []showtime.Theater{
	{Name: "Megaplex Theatres at The District", Address: "3761 W Parkway Plaza Dr, South Jordan, UT 84095"},
	{Name: "Megaplex Theatres at Gateway", Address: "165 S Rio Grande St, Salt Lake City, UT 84101"},
	{Name: "Megaplex Theatres at Valley Fair", Address: "3620 S 2400 W, West Valley City, UT 84119"},
	{Name: "Megaplex Theatres at Geneva", Address: "1510 E Geneva Rd, Vineyard, UT 84059"},
	{Name: "Megaplex Theatres at Legacy Crossing", Address: "1075 W Legacy Crossing Blvd, Centerville, UT 84014"},
	{Name: "Megaplex Theatres at Ogden", Address: "2351 Kiesel Ave, Ogden, UT 84401"},
	{Name: "Megaplex Theatres at Pineview", Address: "2376 N 400 E, North Ogden, UT 84414"},
	{Name: "Megaplex South Jordan at Daybreak", Address: "11577 S State St, South Jordan, UT 84095"},
	{Name: "Cinemark West Valley City and XD", Address: "3600 S 3200 W, West Valley City, UT 84119"},
	{Name: "AMC West Jordan 12", Address: "1650 W Main St, West Jordan, UT 84084"},
}
