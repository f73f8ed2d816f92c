package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()
	log := logger.Named("cache-server")

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		panic(err)
	}
	// The daemon is the store behind the daemon backend, never a client of it.
	if cfg.CacheBackend == config.BackendDaemon {
		cfg.CacheBackend = config.BackendBolt
	}
	sock := cfg.CacheSocket

	// Ensure socket dir exists; only one daemon may own the socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	lock := flock.New(sock + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		panic(err)
	}
	if !locked {
		log.Infof("Another cache daemon owns %s, exiting", sock)
		return
	}
	defer func() { _ = lock.Unlock() }()

	// Remove stale socket
	_ = os.Remove(sock)
	l, err := net.Listen("unix", sock)
	if err != nil {
		panic(err)
	}
	_ = os.Chmod(sock, 0o600)
	defer os.Remove(sock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.OpenBackend(ctx, cfg)
	if err != nil {
		log.Errorf("Failed to open %s store: %v", cfg.CacheBackend, err)
		panic(err)
	}
	defer store.Close()

	go cache.New(store, cfg.CacheTTL).Sweep(ctx, cfg.SweepEvery)

	log.Infof("Serving %s cache on %s", cfg.CacheBackend, sock)
	if err := cache.Serve(ctx, l, store); err != nil {
		log.Errorf("serve: %v", err)
	}
	log.Infof("Cache daemon stopped")
}
