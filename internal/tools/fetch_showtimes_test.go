package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

type fakeEngine struct {
	got      showtime.Query
	theaters []showtime.Theater
}

func (e *fakeEngine) Fetch(_ context.Context, q showtime.Query) []showtime.Theater {
	e.got = q
	return e.theaters
}

func call(t *testing.T, engine Engine, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }
	req := mcp.CallToolRequest{}
	req.Params.Name = "fetch-showtimes"
	req.Params.Arguments = args
	res, err := FetchShowtimesHandler(engine, now)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return res, text.Text
}

func TestFetchShowtimesFormatsTextAndJSON(t *testing.T) {
	engine := &fakeEngine{theaters: []showtime.Theater{{
		Name:       "Megaplex Jordan Commons",
		Address:    "9400 S State St, Sandy, UT 84070",
		BookingURL: "https://megaplex.com/jordancommons",
		Slots: []showtime.Slot{
			{Time: showtime.NewClock(16, 0), Format: showtime.FormatStandard, Available: true},
			{Time: showtime.NewClock(19, 30), Format: showtime.FormatIMAX, Available: false},
		},
	}}}
	res, text := call(t, engine, map[string]any{"movie": " Dune: Part Two ", "location": "Sandy"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", text)
	}
	if engine.got.MovieTitle != "Dune: Part Two" || engine.got.DateString() != "2024-03-01" || engine.got.Location != "Sandy" {
		t.Fatalf("engine saw %+v", engine.got)
	}
	for _, want := range []string{
		"1. Megaplex Jordan Commons",
		"4:00 PM, 7:30 PM (IMAX, sold out)",
		"Book: https://megaplex.com/jordancommons",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}

	i := strings.Index(text, "```json\n")
	j := strings.LastIndex(text, "\n```")
	if i < 0 || j <= i {
		t.Fatalf("no json block:\n%s", text)
	}
	var decoded []showtime.Theater
	if err := json.Unmarshal([]byte(text[i+len("```json\n"):j]), &decoded); err != nil {
		t.Fatalf("json block: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Slots[1].Time != showtime.NewClock(19, 30) {
		t.Fatalf("decoded %+v", decoded)
	}
}

func TestFetchShowtimesNoResults(t *testing.T) {
	_, text := call(t, &fakeEngine{}, map[string]any{"movie": "Oppenheimer", "date": "2024-03-02"})
	if !strings.HasPrefix(text, `No showtimes found for "Oppenheimer" on 2024-03-02`) {
		t.Fatalf("text = %s", text)
	}
	if !strings.Contains(text, "```json\n[]\n```") {
		t.Fatalf("empty list should render as []: %s", text)
	}
}

func TestFetchShowtimesRejectsBadInput(t *testing.T) {
	for name, args := range map[string]map[string]any{
		"missing movie": {"date": "2024-03-01"},
		"blank movie":   {"movie": "  "},
		"bad date":      {"movie": "Dune", "date": "03/01/2024"},
	} {
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{}
			res, _ := call(t, engine, args)
			if !res.IsError {
				t.Fatal("expected an error result")
			}
			if engine.got.MovieTitle != "" {
				t.Fatal("engine called with invalid input")
			}
		})
	}
}
