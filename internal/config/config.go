// Package config loads runtime settings from the environment, optionally
// overlaid by a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends selectable through SHOWTIME_CACHE_BACKEND.
const (
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDaemon   = "daemon"
)

// Config holds every tunable of the engine and its binaries.
type Config struct {
	// RateLimit is the minimum spacing between navigations of one scraper.
	RateLimit time.Duration
	// MaxConcurrent caps in-flight scrape operations across all scrapers.
	MaxConcurrent     int
	ChromiumPath      string
	Headless          bool
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	// SourceTimeout bounds one source inside a fetch.
	SourceTimeout time.Duration

	GracenoteBaseURL string
	GracenoteAPIKey  string
	RadiusMiles      int

	DefaultZip string

	CacheTTL     time.Duration
	CacheBackend string
	CachePath    string
	CacheSocket  string
	DatabaseURL  string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	SweepEvery   time.Duration
}

// Load reads the configuration. A missing .env file is not an error; malformed
// numbers and unknown backends are reported together.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	cacheDir := defaultCacheDir()
	backend := strings.ToLower(envStr("SHOWTIME_CACHE_BACKEND", BackendDaemon))

	cfg := Config{
		RateLimit:         envMillis("SCRAPE_RATE_LIMIT_MS", 2000, &errs),
		MaxConcurrent:     envInt("MAX_CONCURRENT_SCRAPES", 2, &errs),
		ChromiumPath:      os.Getenv("CHROMIUM_EXECUTABLE_PATH"),
		Headless:          envBool("SCRAPE_HEADLESS", true, &errs),
		NavigationTimeout: envMillis("SCRAPE_NAV_TIMEOUT_MS", 45000, &errs),
		SettleDelay:       envMillis("SCRAPE_SETTLE_MS", 3000, &errs),
		SourceTimeout:     time.Duration(envInt("SOURCE_TIMEOUT_SEC", 180, &errs)) * time.Second,

		GracenoteBaseURL: strings.TrimRight(envStr("GRACENOTE_BASE_URL", "https://data.tmsapi.com/v1.1"), "/"),
		GracenoteAPIKey:  os.Getenv("GRACENOTE_API_KEY"),
		RadiusMiles:      envInt("GRACENOTE_RADIUS_MILES", 30, &errs),

		DefaultZip: envStr("SHOWTIME_DEFAULT_ZIP", "84070"),

		CacheTTL:     time.Duration(envInt("SHOWTIME_CACHE_TTL_HOURS", 6, &errs)) * time.Hour,
		CacheBackend: backend,
		CacheSocket:  envStr("SHOWTIME_CACHE_SOCK", filepath.Join(cacheDir, "cache.sock")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    envStr("REDIS_ADDR", "localhost:6379"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:      envInt("REDIS_DB", 0, &errs),
		SweepEvery:   time.Duration(envInt("SHOWTIME_SWEEP_MINUTES", 30, &errs)) * time.Minute,
	}

	defaultFile := "cache.bbolt"
	if backend == BackendSQLite {
		defaultFile = "cache.db"
	}
	cfg.CachePath = envStr("SHOWTIME_CACHE_PATH", filepath.Join(cacheDir, defaultFile))

	switch backend {
	case BackendBolt, BackendSQLite, BackendRedis, BackendDaemon:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SHOWTIME_CACHE_BACKEND %q", backend))
	}
	if cfg.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_SCRAPES must be at least 1, got %d", cfg.MaxConcurrent))
	}
	if cfg.CacheTTL <= 0 {
		errs = append(errs, errors.New("SHOWTIME_CACHE_TTL_HOURS must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HasGracenote reports whether the structured data source can run.
func (c Config) HasGracenote() bool { return c.GracenoteAPIKey != "" }

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "showtime-mcp")
	}
	return filepath.Join(os.TempDir(), "showtime-mcp")
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func envMillis(key string, def int, errs *[]error) time.Duration {
	return time.Duration(envInt(key, def, errs)) * time.Millisecond
}

func envBool(key string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid bool for %s: %q", key, v))
		return def
	}
	return b
}
