package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// ErrNotFound is returned by Backend.Load for a missing key.
var ErrNotFound = errors.New("cache: not found")

// Key identifies one cached venue result. Movie is always a normalized title.
type Key struct {
	Source string `json:"source"`
	Venue  string `json:"venue"`
	Movie  string `json:"movie"`
	Date   string `json:"date"`
}

func (k Key) prefix() string { return listPrefix(k.Source, k.Movie, k.Date) }

// String is the flat key used by the bbolt and Redis stores.
func (k Key) String() string { return k.prefix() + k.Venue }

func listPrefix(source, movie, date string) string {
	return strings.Join([]string{source, movie, date}, "|") + "|"
}

// Entry is one cached row.
type Entry struct {
	Key       Key              `json:"key"`
	Theater   showtime.Theater `json:"theater"`
	FetchedAt time.Time        `json:"fetchedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// Live reports whether the entry may still be served at now.
func (e Entry) Live(now time.Time) bool { return now.Before(e.ExpiresAt) }

// Backend is a persistent store of entries. Writes upsert on the four-part
// key. Backends may return rows past their expiry; Cache filters them.
// Implementations must be safe for concurrent use.
type Backend interface {
	Load(ctx context.Context, key Key) (Entry, error)
	List(ctx context.Context, source, movie, date string) ([]Entry, error)
	Upsert(ctx context.Context, e Entry) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}
