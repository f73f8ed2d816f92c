package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/logger"
)

// Serve answers daemon requests on l with backend until ctx is done or l is
// closed.
func Serve(ctx context.Context, l net.Listener, backend Backend) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("cache daemon accept: %v", err)
			continue
		}
		go handleConn(ctx, conn, backend)
	}
}

func handleConn(ctx context.Context, conn net.Conn, backend Backend) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(dispatch(ctx, backend, req))
	}
}

func dispatch(ctx context.Context, backend Backend, req Request) Response {
	switch req.Op {
	case OpPing:
		return Response{OK: true}
	case OpLoad:
		e, err := backend.Load(ctx, req.Key)
		if errors.Is(err, ErrNotFound) {
			return Response{NotFound: true}
		}
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Entry: &e}
	case OpList:
		entries, err := backend.List(ctx, req.Source, req.Movie, req.Date)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Entries: entries}
	case OpUpsert:
		if req.Entry == nil {
			return Response{Error: "upsert without entry"}
		}
		if err := backend.Upsert(ctx, *req.Entry); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case OpDeleteExpired:
		n, err := backend.DeleteExpired(ctx, time.UnixMilli(req.NowUnixMilli))
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Count: n}
	default:
		return Response{Error: "unknown op " + req.Op}
	}
}
