package showtime

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in queries, URLs and cache keys.
const DateLayout = "2006-01-02"

// Query describes one showtime lookup.
type Query struct {
	MovieTitle string    `json:"movieTitle"`
	Date       time.Time `json:"date"`
	// Location is a zip code or a city name.
	Location string `json:"location,omitempty"`
	// Venue optionally restricts scrapers to venues whose name contains it.
	Venue string `json:"venue,omitempty"`
}

// DateString returns the query date as YYYY-MM-DD.
func (q Query) DateString() string { return FormatDate(q.Date) }

// ParseDate parses a YYYY-MM-DD calendar date into a midnight UTC time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders the calendar part of t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Slot is one bookable screening at a venue.
type Slot struct {
	Time      Clock  `json:"time"`
	Format    Format `json:"format"`
	Available bool   `json:"available"`
}

// Theater holds the showtimes of one movie at one venue.
type Theater struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	Slots      []Slot `json:"slots"`
	BookingURL string `json:"bookingUrl,omitempty"`
	// Source names the provider that produced the entry.
	Source string `json:"source,omitempty"`
	// VenueID is a provider-stable venue identifier when one is known.
	VenueID string `json:"venueId,omitempty"`
}

// NormalizeSlots returns slots sorted ascending by time with duplicate
// (time, format) pairs removed. The first occurrence of a pair wins.
func NormalizeSlots(slots []Slot) []Slot {
	if len(slots) == 0 {
		return nil
	}
	type slotKey struct {
		t Clock
		f Format
	}
	seen := make(map[slotKey]struct{}, len(slots))
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		k := slotKey{s.Time, s.Format}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Format.Rank() > out[j].Format.Rank()
	})
	return out
}

// SortTheaters orders theaters by venue name, case-insensitively.
func SortTheaters(ts []Theater) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := strings.ToLower(ts[i].Name), strings.ToLower(ts[j].Name)
		if a != b {
			return a < b
		}
		return ts[i].Name < ts[j].Name
	})
}
