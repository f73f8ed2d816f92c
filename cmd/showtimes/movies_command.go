package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leonardcser/showtime-mcp/internal/gracenote"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

func newMoviesCommand(ctx *commandContext) *cobra.Command {
	var dateFlag, locationFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List movies playing in the area, most widely shown first",
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
			if a.Gracenote == nil {
				return errors.New("movies needs GRACENOTE_API_KEY")
			}

			zip := a.Zips.Resolve(locationFlag)
			movies, err := a.Gracenote.LocalMovies(cmd.Context(), date, zip)
			if err != nil {
				return err
			}
			if limit > 0 && len(movies) > limit {
				movies = movies[:limit]
			}
			if ctx.jsonOutput {
				if movies == nil {
					movies = []gracenote.LocalMovie{}
				}
				return writeJSON(cmd, movies)
			}

			out := cmd.OutOrStdout()
			if len(movies) == 0 {
				fmt.Fprintf(out, "Nothing playing near %s on %s.\n", zip, showtime.FormatDate(date))
				return nil
			}
			rows := make([][]string, 0, len(movies))
			for _, m := range movies {
				year := "-"
				if m.ReleaseYear > 0 {
					year = strconv.Itoa(m.ReleaseYear)
				}
				rows = append(rows, []string{m.Title, year, strconv.Itoa(m.TheaterCount)})
			}
			fmt.Fprintf(out, "Playing near %s on %s\n", zip, showtime.FormatDate(date))
			fmt.Fprintln(out, renderTable([]string{"Movie", "Year", "Theaters"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Show date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&locationFlag, "location", "l", "", "Zip code or city")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many movies")
	return cmd
}
