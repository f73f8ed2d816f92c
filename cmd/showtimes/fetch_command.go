package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var dateFlag, locationFlag, venueFlag string

	cmd := &cobra.Command{
		Use:   "fetch <movie>",
		Short: "Find theaters showing a movie",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			a, err := ctx.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			q := showtime.Query{
				MovieTitle: strings.Join(args, " "),
				Date:       date,
				Location:   locationFlag,
				Venue:      venueFlag,
			}
			theaters := a.Engine.Fetch(cmd.Context(), q)
			if ctx.jsonOutput {
				if theaters == nil {
					theaters = []showtime.Theater{}
				}
				return writeJSON(cmd, theaters)
			}

			out := cmd.OutOrStdout()
			if len(theaters) == 0 {
				fmt.Fprintf(out, "No showtimes for %q on %s.\n", q.MovieTitle, q.DateString())
				return nil
			}
			rows := make([][]string, 0, len(theaters))
			for _, t := range theaters {
				rows = append(rows, []string{t.Name, formatSlots(t.Slots), orDash(t.Source), orDash(t.BookingURL)})
			}
			fmt.Fprintf(out, "%s on %s: %s\n", q.MovieTitle, q.DateString(), plural(len(theaters), "theater"))
			fmt.Fprintln(out, renderTable([]string{"Theater", "Showtimes", "Source", "Booking"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Show date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&locationFlag, "location", "l", "", "Zip code or city")
	cmd.Flags().StringVar(&venueFlag, "venue", "", "Only scrape venues whose name contains this text")
	return cmd
}
