package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/cache"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

type fakePage struct {
	html     string
	captured []browser.Response
	click    func(js string) bool
	navErr   error
	panicOn  string
	// stall makes HTML block until its context ends.
	stall bool

	filter  browser.Filter
	visited []string
	scripts []string
}

func (p *fakePage) Observe(f browser.Filter) { p.filter = f }

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.panicOn != "" && strings.Contains(url, p.panicOn) {
		panic("renderer crashed")
	}
	p.visited = append(p.visited, url)
	return p.navErr
}

func (p *fakePage) Settle(context.Context, time.Duration) error { return nil }

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.html, nil
}

func (p *fakePage) Evaluate(_ context.Context, js string, out any) error {
	p.scripts = append(p.scripts, js)
	if b, ok := out.(*bool); ok && p.click != nil {
		*b = p.click(js)
	}
	return nil
}

func (p *fakePage) Captured(context.Context) []browser.Response {
	var out []browser.Response
	for _, r := range p.captured {
		if p.filter == nil || p.filter(r.URL, "application/json") {
			out = append(out, r)
		}
	}
	return out
}

type fakePages struct {
	mu       sync.Mutex
	newPage  func() *fakePage
	err      error
	pages    []*fakePage
	acquired int
	released int
}

func (f *fakePages) Acquire(context.Context) (browser.Page, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	if f.err != nil {
		return nil, nil, f.err
	}
	p := f.newPage()
	f.pages = append(f.pages, p)
	var once sync.Once
	return p, func() {
		once.Do(func() {
			f.mu.Lock()
			f.released++
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakePages) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired, f.released
}

func staticPages(p fakePage) *fakePages {
	return &fakePages{newPage: func() *fakePage {
		cp := p
		return &cp
	}}
}

func duneQuery() showtime.Query {
	d, _ := showtime.ParseDate("2024-03-01")
	return showtime.Query{MovieTitle: "Dune Part Two", Date: d, Location: "84070"}
}

func onDay(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.Local) }
}

const megaplexAPI = `{"data":{"movies":[
  {"title":"Dune: Part Two","showtimes":[
    {"showtime_id":1,"showtime":"2024-03-01T19:30:00","experience":"IMAX"},
    {"showtime_id":2,"showtime":"2024-03-01T16:00:00"},
    {"showtime_id":3,"showtime":"2024-03-01T19:30:00","experience":"IMAX"}]},
  {"title":"Barbie","showtimes":[{"showtime_id":4,"showtime":"2024-03-01T12:00:00"}]}]}}`

func TestMegaplexInterceptedJSON(t *testing.T) {
	pages := staticPages(fakePage{
		html: "<html><body><p>Loading</p></body></html>",
		captured: []browser.Response{
			{URL: "https://megaplex.com/api/cinema/showtimes", Body: []byte(megaplexAPI)},
			{URL: "https://megaplex.com/api/banner", Body: []byte(`{"banner":"spring"}`)},
		},
	})
	m := NewMegaplex(Options{Pages: pages, Settle: -1})
	m.now = onDay(2024, 3, 1)

	theaters, err := m.Fetch(context.Background(), duneQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(theaters) != 2 {
		t.Fatalf("got %d theaters, want 2", len(theaters))
	}
	jc := theaters[0]
	if jc.Name != "Megaplex Jordan Commons" || jc.VenueID != "megaplex:7" || jc.Source != MegaplexName {
		t.Fatalf("venue metadata = %+v", jc)
	}
	if jc.BookingURL != "https://megaplex.com/jordancommons" || jc.Address != "9400 S State St, Sandy, UT 84070" {
		t.Fatalf("booking/address = %q %q", jc.BookingURL, jc.Address)
	}
	if len(jc.Slots) != 2 {
		t.Fatalf("slots = %+v, want duplicate 7:30 folded", jc.Slots)
	}
	if jc.Slots[0].Time != showtime.NewClock(16, 0) || jc.Slots[0].Format != showtime.FormatStandard {
		t.Fatalf("first slot = %+v", jc.Slots[0])
	}
	if jc.Slots[1].Time != showtime.NewClock(19, 30) || jc.Slots[1].Format != showtime.FormatIMAX {
		t.Fatalf("second slot = %+v", jc.Slots[1])
	}

	if got := pages.pages[0].visited[0]; got != "https://megaplex.com/jordancommons?date=2024-03-01" {
		t.Fatalf("navigated to %q", got)
	}
	for _, js := range pages.pages[0].scripts {
		if strings.Contains(js, "new RegExp") {
			t.Fatal("date control clicked for today's date")
		}
	}
	if a, r := pages.counts(); a != 2 || r != 2 {
		t.Fatalf("acquired %d, released %d", a, r)
	}
}

func TestMegaplexSectionAfterCascade(t *testing.T) {
	pages := staticPages(fakePage{
		html: `<html><body>
<div class="movie-card"><h3 class="movie-title">Dune: Part Two</h3>
  <button class="showtime" data-format="imax">7:30 PM</button>
  <button class="showtime sold-out">9:45 PM</button></div>
<div class="movie-card"><h3 class="movie-title">Barbie</h3><button class="showtime">1:00 PM</button></div>
</body></html>`,
		click: func(js string) bool { return strings.Contains(js, "const terms") },
	})
	m := NewMegaplex(Options{Pages: pages, Settle: -1, Venues: MegaplexVenues[:1]})
	m.now = onDay(2024, 2, 28)

	theaters, err := m.Fetch(context.Background(), duneQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(theaters) != 1 {
		t.Fatalf("got %d theaters", len(theaters))
	}
	slots := theaters[0].Slots
	if len(slots) != 2 {
		t.Fatalf("slots = %+v", slots)
	}
	if slots[0].Format != showtime.FormatIMAX || !slots[0].Available {
		t.Fatalf("first slot = %+v", slots[0])
	}
	if slots[1].Time != showtime.NewClock(21, 45) || slots[1].Available {
		t.Fatalf("sold-out slot = %+v", slots[1])
	}

	scripts := pages.pages[0].scripts
	if len(scripts) != 4 {
		t.Fatalf("evaluated %d scripts, want 3 date matchers then the movie click", len(scripts))
	}
	if !strings.Contains(scripts[3], `"dune part two"`) {
		t.Fatalf("movie click script missing search term: %s", scripts[3])
	}
}

func TestDateMatchers(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	names := func(ms []dateMatcher) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.name)
		}
		return out
	}
	near := dateMatchers(d, onDay(2024, 2, 28)())
	if got := strings.Join(names(near), ","); got != "day-of-month,day-name,month-day" {
		t.Fatalf("near matchers = %s", got)
	}
	far := dateMatchers(d, onDay(2024, 2, 1)())
	if got := strings.Join(names(far), ","); got != "day-of-month,month-day" {
		t.Fatalf("far matchers = %s", got)
	}

	cases := []struct {
		matcher string
		text    string
		want    bool
	}{
		{"day-of-month", "1", true},
		{"day-of-month", "Fri 1", true},
		{"day-of-month", "11", false},
		{"day-name", "Friday", true},
		{"day-name", "Fri", true},
		{"day-name", "Saturday", false},
		{"month-day", "Fri, Mar 1", true},
		{"month-day", "March 1", true},
		{"month-day", "Mar 11", false},
	}
	for _, tc := range cases {
		var pattern string
		for _, m := range near {
			if m.name == tc.matcher {
				pattern = m.pattern
			}
		}
		re := regexp.MustCompile("(?i)" + pattern)
		if got := re.MatchString(tc.text); got != tc.want {
			t.Errorf("%s(%q) = %v, want %v", tc.matcher, tc.text, got, tc.want)
		}
	}
}

func TestCinemarkSectionParse(t *testing.T) {
	pages := staticPages(fakePage{html: `<html><body>
<div class="theatre-address">12129 S State St, Draper, UT 84020</div>
<div class="movie-container">
  <div class="movie-info"><h3 class="movie-name">Dune: Part Two</h3></div>
  <div class="showtimes">
    <button class="showtime-btn xd">6:45pm</button>
    <button class="showtime-btn" disabled>9:30pm</button>
  </div>
</div>
</body></html>`})
	c := NewCinemark(Options{Pages: pages, Settle: -1, Venues: CinemarkVenues[:1]}, nil)

	theaters, err := c.Fetch(context.Background(), duneQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(theaters) != 1 {
		t.Fatalf("got %d theaters", len(theaters))
	}
	got := theaters[0]
	if got.Address != "12129 S State St, Draper, UT 84020" {
		t.Fatalf("address = %q", got.Address)
	}
	if got.BookingURL != "https://www.cinemark.com/theatres/ut-draper/draper-and-xd?showDate=2024-03-01" {
		t.Fatalf("booking url = %q", got.BookingURL)
	}
	want := []showtime.Slot{
		{Time: showtime.NewClock(18, 45), Format: showtime.FormatXD, Available: true},
		{Time: showtime.NewClock(21, 30), Format: showtime.FormatStandard, Available: false},
	}
	if len(got.Slots) != len(want) {
		t.Fatalf("slots = %+v", got.Slots)
	}
	for i := range want {
		if got.Slots[i] != want[i] {
			t.Fatalf("slot %d = %+v, want %+v", i, got.Slots[i], want[i])
		}
	}
}

func TestCinemarkTextScanFallback(t *testing.T) {
	pages := staticPages(fakePage{html: `<html><body>
<h2>Dune: Part Two</h2><p>IMAX</p><p>7:00 PM 10:15 PM</p>
<h2>Barbie</h2><p>1:00 PM</p>
</body></html>`})
	c := NewCinemark(Options{Pages: pages, Settle: -1, Venues: CinemarkVenues[:1]}, nil)

	theaters, err := c.Fetch(context.Background(), duneQuery())
	if err != nil || len(theaters) != 1 {
		t.Fatalf("Fetch = %+v, %v", theaters, err)
	}
	slots := theaters[0].Slots
	if len(slots) != 2 || slots[0].Time != showtime.NewClock(19, 0) || slots[1].Time != showtime.NewClock(22, 15) {
		t.Fatalf("slots = %+v, want only the times under the title", slots)
	}
	for _, s := range slots {
		if s.Format != showtime.FormatIMAX {
			t.Fatalf("slot %+v should inherit the IMAX label above it", s)
		}
	}
}

func TestCinemarkProbe(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/theatres/ut-draper/draper-and-xd/showtimes" || r.URL.Query().Get("date") != "2024-03-01" {
			t.Errorf("unexpected probe %s", r.URL.String())
		}
		if r.Header.Get("User-Agent") != browser.DesktopUserAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"movies":[{"name":"Dune: Part Two","theaterAddress":"12129 S State St","showtimes":[
			{"time":"7:15 PM","format":"XD","available":true},
			{"time":"10:00 PM","available":false}]}]}`)
	}))
	defer server.Close()

	pages := staticPages(fakePage{html: "<html><body></body></html>"})
	c := NewCinemark(Options{Pages: pages, Settle: -1, Venues: CinemarkVenues[:1]}, NewProbe(server.URL, 0))

	theaters, err := c.Fetch(context.Background(), duneQuery())
	if err != nil || len(theaters) != 1 {
		t.Fatalf("Fetch = %+v, %v", theaters, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("probe hit %d times", hits.Load())
	}
	got := theaters[0]
	if got.Address != "12129 S State St" || len(got.Slots) != 2 {
		t.Fatalf("theater = %+v", got)
	}
	if got.Slots[0].Format != showtime.FormatXD || got.Slots[1].Available {
		t.Fatalf("slots = %+v", got.Slots)
	}
}

func TestMovieNotFoundContributesNothing(t *testing.T) {
	pages := staticPages(fakePage{html: `<html><body><h2>Barbie</h2><p>1:00 PM</p></body></html>`})
	c := NewCinemark(Options{Pages: pages, Settle: -1}, nil)

	theaters, err := c.Fetch(context.Background(), duneQuery())
	if err != nil || len(theaters) != 0 {
		t.Fatalf("Fetch = %+v, %v; want empty", theaters, err)
	}
	a, r := pages.counts()
	if a != len(CinemarkVenues) || r != a {
		t.Fatalf("acquired %d, released %d", a, r)
	}
}

func TestLaunchFailureAbortsChain(t *testing.T) {
	pages := &fakePages{err: fmt.Errorf("%w: chromium missing", showtime.ErrSourceUnavailable)}
	c := NewCinemark(Options{Pages: pages, Settle: -1}, nil)

	_, err := c.Fetch(context.Background(), duneQuery())
	if !errors.Is(err, showtime.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if a, _ := pages.counts(); a != 1 {
		t.Fatalf("acquired %d pages after launch failure, want 1", a)
	}
}

func TestVenueFailuresAreIsolated(t *testing.T) {
	page := `<html><body><h2>Dune: Part Two</h2><p>7:00 PM</p></body></html>`
	n := 0
	pages := &fakePages{newPage: func() *fakePage {
		n++
		switch n {
		case 1:
			return &fakePage{html: page, panicOn: "draper"}
		case 2:
			return &fakePage{html: page, navErr: fmt.Errorf("wait: %w", showtime.ErrNavigationTimeout)}
		}
		return &fakePage{html: page}
	}}
	c := NewCinemark(Options{Pages: pages, Settle: -1, Venues: CinemarkVenues[:3]}, nil)

	theaters, err := c.Fetch(context.Background(), duneQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(theaters) != 1 || theaters[0].Name != "Cinemark 16 Provo" {
		t.Fatalf("theaters = %+v, want only the third venue", theaters)
	}
	if a, r := pages.counts(); a != 3 || r != 3 {
		t.Fatalf("acquired %d, released %d", a, r)
	}
}

func TestStalledVenueIsDroppedAfterItsDeadline(t *testing.T) {
	page := `<html><body><h2>Dune: Part Two</h2><p>7:00 PM</p></body></html>`
	n := 0
	pages := &fakePages{newPage: func() *fakePage {
		n++
		return &fakePage{html: page, stall: n == 1}
	}}
	c := NewCinemark(Options{Pages: pages, Settle: -1, Venues: CinemarkVenues[:2], VenueTimeout: 50 * time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	theaters, err := c.Fetch(ctx, duneQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Fetch took %s; the stalled venue should give up after its own deadline", elapsed)
	}
	if len(theaters) != 1 || theaters[0].Name != CinemarkVenues[1].Name {
		t.Fatalf("theaters = %+v, want only %s", theaters, CinemarkVenues[1].Name)
	}
	if a, r := pages.counts(); a != 2 || r != 2 {
		t.Fatalf("acquired %d, released %d", a, r)
	}
}

func TestChainCacheShortCircuit(t *testing.T) {
	store, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bbolt"), cache.BoltOptions{})
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	c := cache.New(store, time.Hour)
	defer c.Close()

	pages := staticPages(fakePage{
		captured: []browser.Response{{URL: "https://megaplex.com/api/showtimes", Body: []byte(megaplexAPI)}},
	})
	m := NewMegaplex(Options{Pages: pages, Cache: c, Settle: -1})
	m.now = onDay(2024, 3, 1)

	first, err := m.Fetch(context.Background(), duneQuery())
	if err != nil || len(first) != 2 {
		t.Fatalf("first Fetch = %d theaters, %v", len(first), err)
	}
	second, err := m.Fetch(context.Background(), duneQuery())
	if err != nil || len(second) != 2 {
		t.Fatalf("second Fetch = %d theaters, %v", len(second), err)
	}
	if a, _ := pages.counts(); a != 2 {
		t.Fatalf("acquired %d pages, want cached venues to skip the browser", a)
	}
	if second[1].Name != first[1].Name || len(second[1].Slots) != len(first[1].Slots) {
		t.Fatalf("cached result differs: %+v vs %+v", second[1], first[1])
	}

	q := duneQuery()
	q.Venue = "thanksgiving"
	filtered, _ := m.Fetch(context.Background(), q)
	if len(filtered) != 1 || filtered[0].VenueID != "megaplex:18" {
		t.Fatalf("venue filter = %+v", filtered)
	}
}
