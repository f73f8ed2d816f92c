package showtime

import "context"

// Source is a single showtime provider: the structured API or one chain
// scraper. Fetch returns zero or one Theater per venue.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]Theater, error)
}
