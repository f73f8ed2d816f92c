package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Client implements Backend against a cache daemon on a Unix socket.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, dialTimeout: 500 * time.Millisecond}
}

// Dial returns a Client after checking the daemon answers a ping.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	c := NewClient(socketPath)
	if _, err := c.roundTrip(ctx, Request{Op: OpPing}); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	if resp.NotFound {
		return resp, ErrNotFound
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (c *Client) Load(ctx context.Context, key Key) (Entry, error) {
	resp, err := c.roundTrip(ctx, Request{Op: OpLoad, Key: key})
	if err != nil {
		return Entry{}, err
	}
	if resp.Entry == nil {
		return Entry{}, ErrNotFound
	}
	return *resp.Entry, nil
}

func (c *Client) List(ctx context.Context, source, movie, date string) ([]Entry, error) {
	resp, err := c.roundTrip(ctx, Request{Op: OpList, Source: source, Movie: movie, Date: date})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) Upsert(ctx context.Context, e Entry) error {
	_, err := c.roundTrip(ctx, Request{Op: OpUpsert, Entry: &e})
	return err
}

func (c *Client) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	resp, err := c.roundTrip(ctx, Request{Op: OpDeleteExpired, NowUnixMilli: now.UnixMilli()})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Close is a no-op; connections are per request.
func (c *Client) Close() error { return nil }
