package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "showtime:"

// RedisStore keeps entries as JSON strings whose Redis TTL matches the entry
// expiry, so dead rows disappear without a sweep.
type RedisStore struct {
	rdb *redis.Client
}

// RedisOptions select the server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Upsert(ctx context.Context, e Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return s.rdb.Del(ctx, redisKeyPrefix+e.Key.String()).Err()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKeyPrefix+e.Key.String(), payload, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, key Key) (Entry, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *RedisStore) List(ctx context.Context, source, movie, date string) ([]Entry, error) {
	pattern := redisKeyPrefix + escapeGlob(listPrefix(source, movie, date)) + "*"
	var out []Entry
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		out = append(out, e)
	}
	return out, iter.Err()
}

// DeleteExpired is a no-op; Redis expires keys itself.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) { return 0, nil }

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
