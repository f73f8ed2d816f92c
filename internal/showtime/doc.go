// Package showtime defines the values exchanged between the showtime sources,
// the cache and the aggregator: queries, theaters, slots, formats and
// wall-clock times, plus the error kinds sources report.
package showtime
