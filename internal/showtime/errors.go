package showtime

import "errors"

// Error kinds reported by sources and the cache. Callers classify with
// errors.Is; none of them ever escapes the aggregator.
var (
	// ErrSourceUnavailable marks a provider that cannot be reached at all:
	// API/network failure or a browser that failed to launch.
	ErrSourceUnavailable = errors.New("showtime: source unavailable")
	// ErrNavigationTimeout marks a browser wait that exceeded its deadline.
	ErrNavigationTimeout = errors.New("showtime: navigation timeout")
	// ErrMovieNotFound marks a venue that does not list the movie.
	ErrMovieNotFound = errors.New("showtime: movie not found")
	// ErrCacheUnavailable marks a storage read or write fault.
	ErrCacheUnavailable = errors.New("showtime: cache unavailable")
	// ErrConfigurationMissing marks a source that lacks required settings.
	ErrConfigurationMissing = errors.New("showtime: configuration missing")
)
