package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

func testConfig() config.Config {
	return config.Config{
		RateLimit:     time.Millisecond,
		MaxConcurrent: 2,
		SettleDelay:   time.Millisecond,
		SourceTimeout: 5 * time.Second,
		DefaultZip:    "84070",
		CacheTTL:      time.Hour,
	}
}

func TestNewWithoutAPIKeyRunsScrapersOnly(t *testing.T) {
	var launches atomic.Int32
	failing := func(context.Context) (browser.Browser, error) {
		launches.Add(1)
		return nil, errors.New("no chromium in test")
	}
	store, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bbolt"), cache.BoltOptions{})
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}

	a := New(testConfig(), store, Options{Launcher: failing})
	defer a.Close()
	if a.Gracenote != nil {
		t.Fatal("structured source built without a key")
	}
	if launches.Load() != 0 {
		t.Fatal("browser launched before any fetch")
	}

	d, _ := showtime.ParseDate("2024-03-01")
	got := a.Engine.Fetch(context.Background(), showtime.Query{MovieTitle: "Dune", Date: d})
	if len(got) != 0 {
		t.Fatalf("got %+v with no working source", got)
	}
	if launches.Load() != 2 {
		t.Fatalf("launches = %d, want one per scraper", launches.Load())
	}
}

func TestNewWithAPIKeyAndNoCache(t *testing.T) {
	cfg := testConfig()
	cfg.GracenoteAPIKey = "key"
	cfg.GracenoteBaseURL = "https://data.example"
	a := New(cfg, nil, Options{Launcher: func(context.Context) (browser.Browser, error) {
		return nil, errors.New("unused")
	}})
	if a.Gracenote == nil {
		t.Fatal("structured source missing")
	}
	if a.Cache != nil {
		t.Fatal("cache built without a backend")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDirectoryCoversScrapedVenues(t *testing.T) {
	dir := Directory()
	ids := map[string]bool{}
	for _, v := range dir {
		if v.Address == "" {
			t.Fatalf("directory venue %q has no address", v.Name)
		}
		if v.VenueID != "" {
			ids[v.VenueID] = true
		}
	}
	for _, want := range []string{"megaplex:7", "megaplex:18", "cinemark:draper", "cinemark:st-george"} {
		if !ids[want] {
			t.Fatalf("directory missing %s", want)
		}
	}

	a := New(testConfig(), nil, Options{Launcher: func(context.Context) (browser.Browser, error) {
		return nil, errors.New("unused")
	}})
	defer a.Close()
	found := false
	for _, l := range a.Engine.Theaters(context.Background(), "Sandy") {
		if l.Name == "Megaplex Jordan Commons" {
			found = true
		}
	}
	if !found {
		t.Fatal("theater search near Sandy should list Jordan Commons")
	}
}
