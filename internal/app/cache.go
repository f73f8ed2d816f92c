package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/logger"
)

// CacheDaemonBinary is the executable that serves the daemon backend.
const CacheDaemonBinary = "showtime-mcp-cache"

// daemonStartWait bounds how long OpenCache polls a freshly spawned daemon.
var daemonStartWait = 5 * time.Second

// OpenCache opens the configured backend. For the daemon backend it dials the
// socket and starts the daemon when nobody is listening. Any failure returns
// nil so callers run without a cache.
func OpenCache(ctx context.Context, cfg config.Config) cache.Backend {
	if cfg.CacheBackend != config.BackendDaemon {
		backend, err := cache.OpenBackend(ctx, cfg)
		if err != nil {
			logger.Errorf("Failed to open %s cache, continuing without cache: %v", cfg.CacheBackend, err)
			return nil
		}
		return backend
	}

	sock := cfg.CacheSocket
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client, err := cache.Dial(ctx, sock)
	if err == nil {
		logger.Infof("Successfully connected to cache daemon")
		return client
	}

	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
	if startErr := startCacheDaemon(); startErr != nil {
		logger.Errorf("Failed to start cache daemon: %v", startErr)
		return nil
	}
	logger.Infof("Cache daemon started")

	deadline := time.Now().Add(daemonStartWait)
	for time.Now().Before(deadline) {
		if client, err = cache.Dial(ctx, sock); err == nil {
			logger.Infof("Successfully connected to cache daemon")
			return client
		}
		time.Sleep(200 * time.Millisecond)
	}
	logger.Errorf("Cache daemon did not come up, continuing without cache: %v", err)
	return nil
}

func startCacheDaemon() error {
	// 1) Binary next to this executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), CacheDaemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}

	// 2) PATH binary
	if path, err := exec.LookPath(CacheDaemonBinary); err == nil {
		return spawn(path)
	}

	// 3) Working directory
	local := "./" + CacheDaemonBinary
	if _, err := os.Stat(local); err == nil {
		return spawn(local)
	}

	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}
