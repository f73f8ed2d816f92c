package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// headerSize is the fetchedAt and expiresAt prefix of every value, both
// big-endian Unix milliseconds.
const headerSize = 16

// BoltStore is the default Backend, a single bbolt file.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// BoltOptions tune OpenBolt.
type BoltOptions struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// Timeout bounds the wait for the file lock held by another process.
	Timeout time.Duration
}

// OpenBolt initializes or opens a BoltStore at path.
func OpenBolt(path string, opts BoltOptions) (*BoltStore, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	bucket := []byte("showtimes")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Upsert(_ context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(e.FetchedAt.UnixMilli()))
	binary.BigEndian.PutUint64(buf[8:headerSize], uint64(e.ExpiresAt.UnixMilli()))
	copy(buf[headerSize:], payload)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(e.Key.String()), buf)
	})
}

func (s *BoltStore) Load(_ context.Context, key Key) (Entry, error) {
	var out Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key.String()))
		if v == nil {
			return nil
		}
		found = true
		return decodeBolt(v, &out)
	})
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, ErrNotFound
	}
	return out, nil
}

func (s *BoltStore) List(_ context.Context, source, movie, date string) ([]Entry, error) {
	prefix := []byte(listPrefix(source, movie, date))
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e Entry
			if err := decodeBolt(v, &e); err != nil {
				return fmt.Errorf("decode %q: %w", k, err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// DeleteExpired only reads the header of each value.
func (s *BoltStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	cutoff := now.UnixMilli()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var dead [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if len(v) < headerSize || int64(binary.BigEndian.Uint64(v[8:headerSize])) <= cutoff {
				dead = append(dead, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(dead)
		return nil
	})
	return removed, err
}

func decodeBolt(v []byte, e *Entry) error {
	if len(v) < headerSize {
		return errors.New("cache: truncated value")
	}
	return json.Unmarshal(v[headerSize:], e)
}
