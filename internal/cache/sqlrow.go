package cache

import (
	"encoding/json"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// row is the column layout of the showtime_cache table shared by the SQL
// backends.
type row struct {
	source, venue, movie, date string
	address, bookingURL        string
	origin, venueID            string
	slots                      []byte
	fetchedAt, expiresAt       time.Time
}

func rowFromEntry(e Entry) (row, error) {
	slots, err := json.Marshal(e.Theater.Slots)
	if err != nil {
		return row{}, err
	}
	return row{
		source:     e.Key.Source,
		venue:      e.Key.Venue,
		movie:      e.Key.Movie,
		date:       e.Key.Date,
		address:    e.Theater.Address,
		bookingURL: e.Theater.BookingURL,
		origin:     e.Theater.Source,
		venueID:    e.Theater.VenueID,
		slots:      slots,
		fetchedAt:  e.FetchedAt,
		expiresAt:  e.ExpiresAt,
	}, nil
}

func (r row) entry() (Entry, error) {
	var slots []showtime.Slot
	if len(r.slots) > 0 {
		if err := json.Unmarshal(r.slots, &slots); err != nil {
			return Entry{}, err
		}
	}
	return Entry{
		Key: Key{Source: r.source, Venue: r.venue, Movie: r.movie, Date: r.date},
		Theater: showtime.Theater{
			Name:       r.venue,
			Address:    r.address,
			Slots:      slots,
			BookingURL: r.bookingURL,
			Source:     r.origin,
			VenueID:    r.venueID,
		},
		FetchedAt: r.fetchedAt,
		ExpiresAt: r.expiresAt,
	}, nil
}
