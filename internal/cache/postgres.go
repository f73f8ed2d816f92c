package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS showtime_cache (
	source      TEXT NOT NULL,
	venue       TEXT NOT NULL,
	movie_title TEXT NOT NULL,
	show_date   DATE NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	slots       JSONB NOT NULL DEFAULT '[]',
	booking_url TEXT NOT NULL DEFAULT '',
	origin      TEXT NOT NULL DEFAULT '',
	venue_id    TEXT NOT NULL DEFAULT '',
	fetched_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source, venue, movie_title, show_date)
);
CREATE INDEX IF NOT EXISTS idx_showtime_cache_expires ON showtime_cache (expires_at);
`

// PGStore keeps entries in PostgreSQL so several engine hosts share one cache.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) Upsert(ctx context.Context, e Entry) error {
	r, err := rowFromEntry(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO showtime_cache
			(source, venue, movie_title, show_date, address, slots, booking_url, origin, venue_id, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4::date, $5, $6::jsonb, $7, $8, $9, $10, $11)
		ON CONFLICT (source, venue, movie_title, show_date) DO UPDATE SET
			address = EXCLUDED.address,
			slots = EXCLUDED.slots,
			booking_url = EXCLUDED.booking_url,
			origin = EXCLUDED.origin,
			venue_id = EXCLUDED.venue_id,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`,
		r.source, r.venue, r.movie, r.date, r.address, string(r.slots), r.bookingURL, r.origin, r.venueID,
		r.fetchedAt, r.expiresAt,
	)
	return err
}

const pgColumns = `source, venue, movie_title, to_char(show_date, 'YYYY-MM-DD'), address, slots::text, booking_url, origin, venue_id, fetched_at, expires_at`

func (s *PGStore) Load(ctx context.Context, key Key) (Entry, error) {
	r := s.pool.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM showtime_cache
		WHERE source = $1 AND venue = $2 AND movie_title = $3 AND show_date = $4::date`,
		key.Source, key.Venue, key.Movie, key.Date)
	e, err := scanPG(r)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *PGStore) List(ctx context.Context, source, movie, date string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgColumns+` FROM showtime_cache
		WHERE source = $1 AND movie_title = $2 AND show_date = $3::date
		ORDER BY venue`,
		source, movie, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM showtime_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanPG(sc pgx.Row) (Entry, error) {
	var (
		r     row
		slots string
	)
	if err := sc.Scan(&r.source, &r.venue, &r.movie, &r.date, &r.address, &slots, &r.bookingURL,
		&r.origin, &r.venueID, &r.fetchedAt, &r.expiresAt); err != nil {
		return Entry{}, err
	}
	r.slots = []byte(slots)
	return r.entry()
}
