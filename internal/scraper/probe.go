package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/showtime-mcp/internal/browser"
)

// ProbeTimeout bounds one probe request.
const ProbeTimeout = 20 * time.Second

// Probe reads a chain's same-origin showtimes JSON endpoint without a
// browser. All probes made through one Probe share its rate limit.
type Probe struct {
	c       *colly.Collector
	baseURL string
}

// NewProbe returns a Probe for baseURL that waits delay between requests.
func NewProbe(baseURL string, delay time.Duration) *Probe {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
	})
	c.SetRequestTimeout(ProbeTimeout)
	return &Probe{c: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// Showtimes fetches the venue's showtimes for date. A response that is not a
// known showtimes shape yields no movies and no error.
func (p *Probe) Showtimes(ctx context.Context, slug, date string) ([]apiMovie, error) {
	c := p.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", browser.DesktopUserAgent)
		r.Headers.Set("Accept", "application/json, text/plain, */*")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		if ctx.Err() != nil {
			return
		}
		body = append([]byte(nil), r.Body...)
	})

	endpoint := fmt.Sprintf("%s/api/theatres/%s/showtimes?date=%s", p.baseURL, slug, url.QueryEscape(date))
	if err := c.Visit(endpoint); err != nil {
		return nil, fmt.Errorf("probe %s: %w", endpoint, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeMovies(body), nil
}
