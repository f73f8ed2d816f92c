package main

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/showtime-mcp/internal/app"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	tools "github.com/leonardcser/showtime-mcp/internal/tools"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting Showtime MCP server")

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := app.OpenCache(ctx, cfg)
	a := app.New(cfg, backend, app.Options{})
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}()
	if cfg.CacheBackend != config.BackendDaemon {
		go a.Cache.Sweep(ctx, cfg.SweepEvery)
	}
	logger.Infof("Initialized showtime engine (cache=%s, structured=%t)", cfg.CacheBackend, a.Gracenote != nil)

	s := server.NewMCPServer(
		"Showtime MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	logger.Infof("Created MCP server instance")

	toolFetch := mcp.NewTool("fetch-showtimes",
		mcp.WithDescription(multiline(
			"Finds which theaters are showing a movie, at what times and in which formats",
			"\nFunctionality:",
			"- Combines the Gracenote showtimes API with the Megaplex and Cinemark websites",
			"- Merges venues reported by several sources into one entry, preferring the theater's own site",
			"- Returns a readable list followed by a JSON block with every venue, slot, format and booking link",
			"\nUsage notes:",
			"- Dates use YYYY-MM-DD; the default is today",
			"- Location may be a zip code or a Utah city name; unknown places fall back to the default area",
			"- Results are cached for several hours, so repeated questions answer quickly",
			"- Scraping venue sites can take a minute or more on a cold cache",
		)),
		mcp.WithString("movie", mcp.Required(), mcp.Description("The movie title, e.g. \"Dune: Part Two\"")),
		mcp.WithString("date", mcp.Description("Show date as YYYY-MM-DD")),
		mcp.WithString("location", mcp.Description("Zip code or city name")),
		mcp.WithString("venue", mcp.Description("Only scrape venues whose name contains this text")),
	)
	s.AddTool(toolFetch, tools.FetchShowtimesHandler(a.Engine, time.Now))
	logger.Infof("Registered fetch-showtimes tool")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
