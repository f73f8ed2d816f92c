package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardcser/showtime-mcp/internal/aggregator"
)

func newTheatersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "theaters [zip or city]",
		Short: "List theaters near a zip code or city, Megaplex first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			where := strings.Join(args, " ")
			listings := a.Engine.Theaters(cmd.Context(), where)
			if ctx.jsonOutput {
				if listings == nil {
					listings = []aggregator.Listing{}
				}
				return writeJSON(cmd, listings)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(listings))
			for _, l := range listings {
				rows = append(rows, []string{l.Name, l.Chain, orDash(l.Address), l.Source})
			}
			fmt.Fprintf(out, "%s near %s\n", plural(len(listings), "theater"), a.Zips.Resolve(where))
			fmt.Fprintln(out, renderTable([]string{"Theater", "Chain", "Address", "Source"}, rows, nil))
			return nil
		},
	}
}
