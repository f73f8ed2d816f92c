package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// Engine is the showtime lookup the tool calls. *aggregator.Engine
// implements it.
type Engine interface {
	Fetch(ctx context.Context, q showtime.Query) []showtime.Theater
}

// FetchShowtimesHandler returns the MCP tool handler for the "fetch-showtimes"
// tool. A missing date means today according to now.
func FetchShowtimesHandler(engine Engine, now func() time.Time) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		movie, err := req.RequireString("movie")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(movie) == "" {
			return mcp.NewToolResultError("movie must not be empty"), nil
		}
		dateArg := strings.TrimSpace(req.GetString("date", ""))
		if dateArg == "" {
			dateArg = showtime.FormatDate(now())
		}
		date, err := showtime.ParseDate(dateArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		q := showtime.Query{
			MovieTitle: strings.TrimSpace(movie),
			Date:       date,
			Location:   strings.TrimSpace(req.GetString("location", "")),
			Venue:      strings.TrimSpace(req.GetString("venue", "")),
		}
		theaters := engine.Fetch(ctx, q)
		if theaters == nil {
			theaters = []showtime.Theater{}
		}
		payload, err := json.MarshalIndent(theaters, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatShowtimes(q, theaters) + "\n\n```json\n" + string(payload) + "\n```"), nil
	}
}

// formatShowtimes renders a numbered list of venues with their times.
func formatShowtimes(q showtime.Query, theaters []showtime.Theater) string {
	where := q.Location
	if where == "" {
		where = "the default area"
	}
	if len(theaters) == 0 {
		return fmt.Sprintf("No showtimes found for %q on %s near %s.", q.MovieTitle, q.DateString(), where)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s on %s near %s: %d theaters", q.MovieTitle, q.DateString(), where, len(theaters))
	for i, t := range theaters {
		fmt.Fprintf(&sb, "\n\n%d. %s", i+1, t.Name)
		if t.Address != "" {
			sb.WriteString("\n   ")
			sb.WriteString(t.Address)
		}
		times := make([]string, 0, len(t.Slots))
		for _, s := range t.Slots {
			label := s.Time.String()
			var notes []string
			if s.Format != showtime.FormatStandard {
				notes = append(notes, string(s.Format))
			}
			if !s.Available {
				notes = append(notes, "sold out")
			}
			if len(notes) > 0 {
				label += " (" + strings.Join(notes, ", ") + ")"
			}
			times = append(times, label)
		}
		sb.WriteString("\n   ")
		sb.WriteString(strings.Join(times, ", "))
		if t.BookingURL != "" {
			sb.WriteString("\n   Book: ")
			sb.WriteString(t.BookingURL)
		}
	}
	return sb.String()
}
