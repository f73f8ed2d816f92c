package gracenote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/gracenote"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

const showingsPayload = `[
  {"tmsId":"MV1","title":"Dune: Part Two","releaseYear":2024,"shortDescription":"Paul joins the Fremen.",
   "showtimes":[
     {"theatre":{"id":"1001","name":"Jordan Commons Megaplex"},"dateTime":"2024-03-01T19:30","quals":"Closed Captioned|Reserved Seating"},
     {"theatre":{"id":"1001","name":"Jordan Commons Megaplex"},"dateTime":"2024-03-01T19:30","quals":"Reserved Seating","ticketURI":""},
     {"theatre":{"id":"2002","name":"Cinemark Sugarhouse"},"dateTime":"2024-03-01T18:00","ticketURI":"https://tickets.example/sugarhouse"}
   ]},
  {"tmsId":"MV2","title":"Dune: Part Two: The IMAX 2D Experience",
   "showtimes":[
     {"theatre":{"id":"1001","name":"Jordan Commons Megaplex"},"dateTime":"2024-03-01T21:00","quals":"IMAX","ticketURI":"https://tickets.example/jc"},
     {"theatre":{"id":"3003","name":"Megaplex Thanksgiving Point"},"dateTime":"2024-03-01T16:15","quals":"Dolby Cinema"}
   ]},
  {"tmsId":"MV3","title":"Barbie",
   "showtimes":[{"theatre":{"id":"1001","name":"Jordan Commons Megaplex"},"dateTime":"2024-03-01T17:00"}]}
]`

func newServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/movies/showings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "secret-key" || q.Get("startDate") != "2024-03-01" || q.Get("radius") != "30" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func query(title string) showtime.Query {
	d, _ := showtime.ParseDate("2024-03-01")
	return showtime.Query{MovieTitle: title, Date: d, Location: "Sandy"}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := gracenote.New("", "https://example.com")
	if !errors.Is(err, showtime.ErrConfigurationMissing) {
		t.Fatalf("New without key = %v, want ErrConfigurationMissing", err)
	}
}

func TestFetchGroupsByVenue(t *testing.T) {
	var calls atomic.Int32
	server := newServer(t, http.StatusOK, showingsPayload, &calls)
	client, err := gracenote.New("secret-key", server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	theaters, err := client.Fetch(context.Background(), query("Dune Part Two"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("API called %d times, want 1", calls.Load())
	}
	if len(theaters) != 3 {
		t.Fatalf("got %d theaters, want 3: %+v", len(theaters), theaters)
	}
	names := []string{theaters[0].Name, theaters[1].Name, theaters[2].Name}
	want := []string{"Cinemark Sugarhouse", "Jordan Commons Megaplex", "Megaplex Thanksgiving Point"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	jc := theaters[1]
	if jc.VenueID != "1001" || jc.Source != gracenote.SourceName {
		t.Fatalf("venue metadata = %+v", jc)
	}
	if len(jc.Slots) != 2 {
		t.Fatalf("slots = %+v, want duplicate 7:30 folded", jc.Slots)
	}
	if jc.Slots[0].Time.String() != "7:30 PM" || jc.Slots[0].Format != showtime.FormatStandard {
		t.Fatalf("first slot = %+v", jc.Slots[0])
	}
	if jc.Slots[1].Time.String() != "9:00 PM" || jc.Slots[1].Format != showtime.FormatIMAX {
		t.Fatalf("second slot = %+v", jc.Slots[1])
	}
	if jc.BookingURL != "https://tickets.example/jc" {
		t.Fatalf("booking url = %q", jc.BookingURL)
	}
	if tp := theaters[2]; tp.Slots[0].Format != showtime.FormatIMAX {
		t.Fatalf("title hint should upgrade Dolby qualifier to IMAX, got %s", tp.Slots[0].Format)
	}
}

func TestFetchNoMatch(t *testing.T) {
	server := newServer(t, http.StatusOK, showingsPayload, nil)
	client, _ := gracenote.New("secret-key", server.URL)
	theaters, err := client.Fetch(context.Background(), query("Oppenheimer"))
	if err != nil || len(theaters) != 0 {
		t.Fatalf("Fetch = %v, %v; want empty", theaters, err)
	}
}

func TestFetchDegradesToEmpty(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error": {http.StatusInternalServerError, `{"error":"boom"}`},
		"unauthorized": {http.StatusForbidden, `Developer Inactive`},
		"not an array": {http.StatusOK, `{"movies":[]}`},
		"truncated":    {http.StatusOK, `[{"title":"Dune`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := newServer(t, tc.status, tc.body, nil)
			client, _ := gracenote.New("secret-key", server.URL)
			theaters, err := client.Fetch(context.Background(), query("Dune"))
			if err != nil || len(theaters) != 0 {
				t.Fatalf("Fetch = %v, %v; want empty and nil", theaters, err)
			}
		})
	}
}

func TestShowingsErrorRedactsKey(t *testing.T) {
	server := newServer(t, http.StatusUnauthorized, `bad key secret-key`, nil)
	client, _ := gracenote.New("secret-key", server.URL)
	d, _ := showtime.ParseDate("2024-03-01")
	_, err := client.Showings(context.Background(), d, "84070")
	if !errors.Is(err, showtime.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("error leaks the api key: %v", err)
	}

	dead, _ := gracenote.New("secret-key", "http://127.0.0.1:1", gracenote.WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err = dead.Showings(context.Background(), d, "84070")
	if err == nil || strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("transport error should be redacted, got %v", err)
	}
}

func TestLocalMoviesFoldsVariants(t *testing.T) {
	server := newServer(t, http.StatusOK, showingsPayload, nil)
	client, _ := gracenote.New("secret-key", server.URL)
	d, _ := showtime.ParseDate("2024-03-01")
	movies, err := client.LocalMovies(context.Background(), d, "84070")
	if err != nil {
		t.Fatalf("LocalMovies: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("got %d movies, want 2: %+v", len(movies), movies)
	}
	if movies[0].Title != "Dune: Part Two" || movies[0].TheaterCount != 3 {
		t.Fatalf("first movie = %+v, want Dune with 3 venues", movies[0])
	}
	if movies[0].Description != "Paul joins the Fremen." {
		t.Fatalf("description = %q", movies[0].Description)
	}
	if movies[1].Title != "Barbie" || movies[1].TheaterCount != 1 {
		t.Fatalf("second movie = %+v", movies[1])
	}
}

func TestVenuesListsEachTheatreOnce(t *testing.T) {
	server := newServer(t, http.StatusOK, showingsPayload, nil)
	client, _ := gracenote.New("secret-key", server.URL)
	d, _ := showtime.ParseDate("2024-03-01")
	venues, err := client.Venues(context.Background(), d, "84070")
	if err != nil {
		t.Fatalf("Venues: %v", err)
	}
	want := []string{"Cinemark Sugarhouse", "Jordan Commons Megaplex", "Megaplex Thanksgiving Point"}
	if len(venues) != len(want) {
		t.Fatalf("got %+v, want %v", venues, want)
	}
	for i, name := range want {
		if venues[i].Name != name || venues[i].Source != gracenote.SourceName || venues[i].VenueID == "" {
			t.Fatalf("venue %d = %+v, want %s", i, venues[i], name)
		}
	}
}

func TestVenuesReportsAPIFailure(t *testing.T) {
	server := newServer(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)
	client, _ := gracenote.New("secret-key", server.URL)
	d, _ := showtime.ParseDate("2024-03-01")
	if _, err := client.Venues(context.Background(), d, "84070"); !errors.Is(err, showtime.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}
