package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS showtime_cache (
	source      TEXT NOT NULL,
	venue       TEXT NOT NULL,
	movie_title TEXT NOT NULL,
	show_date   TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	slots       TEXT NOT NULL DEFAULT '[]',
	booking_url TEXT NOT NULL DEFAULT '',
	origin      TEXT NOT NULL DEFAULT '',
	venue_id    TEXT NOT NULL DEFAULT '',
	fetched_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL,
	PRIMARY KEY (source, venue, movie_title, show_date)
);
CREATE INDEX IF NOT EXISTS idx_showtime_cache_expires ON showtime_cache (expires_at);
`

// SQLStore keeps entries in a SQLite file. Times are Unix milliseconds.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Upsert(ctx context.Context, e Entry) error {
	r, err := rowFromEntry(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO showtime_cache
			(source, venue, movie_title, show_date, address, slots, booking_url, origin, venue_id, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, venue, movie_title, show_date) DO UPDATE SET
			address = excluded.address,
			slots = excluded.slots,
			booking_url = excluded.booking_url,
			origin = excluded.origin,
			venue_id = excluded.venue_id,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		r.source, r.venue, r.movie, r.date, r.address, string(r.slots), r.bookingURL, r.origin, r.venueID,
		r.fetchedAt.UnixMilli(), r.expiresAt.UnixMilli(),
	)
	return err
}

const sqliteColumns = `source, venue, movie_title, show_date, address, slots, booking_url, origin, venue_id, fetched_at, expires_at`

func (s *SQLStore) Load(ctx context.Context, key Key) (Entry, error) {
	r := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM showtime_cache
		WHERE source = ? AND venue = ? AND movie_title = ? AND show_date = ?`,
		key.Source, key.Venue, key.Movie, key.Date)
	e, err := scanSQLite(r)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) List(ctx context.Context, source, movie, date string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM showtime_cache
		WHERE source = ? AND movie_title = ? AND show_date = ?
		ORDER BY venue`,
		source, movie, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM showtime_cache WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(sc scanner) (Entry, error) {
	var (
		r                  row
		slots              string
		fetched, expiresAt int64
	)
	if err := sc.Scan(&r.source, &r.venue, &r.movie, &r.date, &r.address, &slots, &r.bookingURL,
		&r.origin, &r.venueID, &fetched, &expiresAt); err != nil {
		return Entry{}, err
	}
	r.slots = []byte(slots)
	r.fetchedAt = time.UnixMilli(fetched)
	r.expiresAt = time.UnixMilli(expiresAt)
	return r.entry()
}
