package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leonardcser/showtime-mcp/internal/app"
	"github.com/leonardcser/showtime-mcp/internal/config"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// commandContext loads configuration once and opens the engine on demand.
type commandContext struct {
	jsonOutput bool
	cfg        *config.Config
}

func (c *commandContext) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

// openApp builds the engine. The caller must Close it.
func (c *commandContext) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.OpenCache(ctx, cfg), app.Options{}), nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "showtimes",
		Short:         "Look up movie showtimes around Salt Lake and Utah County",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.InitFromEnv()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newMoviesCommand(ctx))
	rootCmd.AddCommand(newTheatersCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}

// parseDateFlag reads a YYYY-MM-DD flag value, defaulting to today.
func parseDateFlag(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return showtime.ParseDate(showtime.FormatDate(time.Now()))
	}
	return showtime.ParseDate(value)
}

// formatSlots renders slots as "4:00 PM, 7:30 PM IMAX, 9:45 PM (sold out)".
func formatSlots(slots []showtime.Slot) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		label := s.Time.String()
		if s.Format != showtime.FormatStandard {
			label += " " + string(s.Format)
		}
		if !s.Available {
			label += " (sold out)"
		}
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
