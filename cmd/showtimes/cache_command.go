package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/leonardcser/showtime-mcp/internal/aggregator"
	"github.com/leonardcser/showtime-mcp/internal/app"
	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/location"
	"github.com/leonardcser/showtime-mcp/internal/scraper"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the showtime cache",
	}
	cmd.AddCommand(newCacheSweepCommand(ctx))
	cmd.AddCommand(newCacheGetCommand(ctx))
	return cmd
}

// openCache opens the configured backend without starting any browsers.
func (c *commandContext) openCache(ctx context.Context) (*cache.Cache, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	backend := app.OpenCache(ctx, cfg)
	if backend == nil {
		return nil, fmt.Errorf("open %s cache: see the log for details", cfg.CacheBackend)
	}
	return cache.New(backend, cfg.CacheTTL), nil
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			n := c.ClearExpired(cmd.Context())
			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]int{"removed": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", plural(n, "expired entry"))
			return nil
		},
	}
}

func newCacheGetCommand(ctx *commandContext) *cobra.Command {
	var dateFlag, locationFlag, sourceFlag string

	cmd := &cobra.Command{
		Use:   "get <movie>",
		Short: "Show live cached venues for a movie",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			c, err := ctx.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			movie := strings.Join(args, " ")
			sources := []string{sourceFlag}
			if sourceFlag == "" {
				zip := location.NewResolver(cfg.DefaultZip).Resolve(locationFlag)
				sources = []string{aggregator.CombinedSource + zip, scraper.MegaplexName, scraper.CinemarkName}
			}

			var entries []cache.Entry
			for _, source := range sources {
				entries = append(entries, c.Entries(cmd.Context(), source, movie, showtime.FormatDate(date))...)
			}
			if ctx.jsonOutput {
				if entries == nil {
					entries = []cache.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Nothing cached for %q.\n", movie)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Key.Source,
					e.Theater.Name,
					formatSlots(e.Theater.Slots),
					humanize.Time(e.FetchedAt),
					humanize.Time(e.ExpiresAt),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Source", "Venue", "Showtimes", "Fetched", "Expires"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Show date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&locationFlag, "location", "l", "", "Zip code or city for the combined entries")
	cmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "Only this cache source (e.g. megaplex, combined:84070)")
	return cmd
}
