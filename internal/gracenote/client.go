// Package gracenote queries the TMS "movies/showings" API for every screening
// in an area on one date and turns it into per-venue showtimes.
package gracenote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leonardcser/showtime-mcp/internal/location"
	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// SourceName identifies this provider in logs and Theater.Source.
const SourceName = "gracenote"

// DefaultRadius is the search radius in miles.
const DefaultRadius = 30

// Theatre is a venue as the API names it.
type Theatre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Showing is one screening.
type Showing struct {
	Theatre   Theatre `json:"theatre"`
	DateTime  string  `json:"dateTime"`
	TicketURI string  `json:"ticketURI,omitempty"`
	Barg      bool    `json:"barg,omitempty"`
	Quals     string  `json:"quals,omitempty"`
}

// Movie is one title in the showings payload. Format variants of a film are
// listed as separate movies.
type Movie struct {
	TMSID            string    `json:"tmsId"`
	Title            string    `json:"title"`
	ReleaseYear      int       `json:"releaseYear,omitempty"`
	Genres           []string  `json:"genres,omitempty"`
	ShortDescription string    `json:"shortDescription,omitempty"`
	LongDescription  string    `json:"longDescription,omitempty"`
	Showtimes        []Showing `json:"showtimes,omitempty"`
}

// Client talks to the showings API.
type Client struct {
	apiKey     string
	baseURL    string
	radius     int
	httpClient *http.Client
	zips       *location.Resolver
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRadius sets the search radius in miles.
func WithRadius(miles int) Option {
	return func(c *Client) {
		if miles > 0 {
			c.radius = miles
		}
	}
}

// WithResolver sets how query locations become zip codes.
func WithResolver(r *location.Resolver) Option {
	return func(c *Client) {
		if r != nil {
			c.zips = r
		}
	}
}

// New creates a client. An empty key reports showtime.ErrConfigurationMissing
// so the caller can skip the source.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gracenote api key: %w", showtime.ErrConfigurationMissing)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("gracenote base url: %w", showtime.ErrConfigurationMissing)
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		radius:     DefaultRadius,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		zips:       location.NewResolver(location.DefaultZip),
		log:        logger.Named(SourceName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements the source capability.
func (c *Client) Name() string { return SourceName }

func (c *Client) redact(s string) string {
	s = strings.ReplaceAll(s, c.apiKey, "***")
	return strings.ReplaceAll(s, url.QueryEscape(c.apiKey), "***")
}

// Showings returns every movie with screenings within the radius of zip on
// date. Failures wrap showtime.ErrSourceUnavailable and never include the key.
func (c *Client) Showings(ctx context.Context, date time.Time, zip string) ([]Movie, error) {
	params := url.Values{}
	params.Set("startDate", showtime.FormatDate(date))
	params.Set("zip", zip)
	params.Set("radius", strconv.Itoa(c.radius))
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "/movies/showings?" + params.Encode()

	c.log.Infof("request %s", c.redact(endpoint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %s", showtime.ErrSourceUnavailable, c.redact(err.Error()))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", showtime.ErrSourceUnavailable, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", showtime.ErrSourceUnavailable, resp.StatusCode, c.redact(strings.TrimSpace(string(body))))
	}

	var movies []Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		return nil, fmt.Errorf("%w: decode showings: %v", showtime.ErrSourceUnavailable, err)
	}
	c.log.Infof("%d movies near %s on %s", len(movies), zip, showtime.FormatDate(date))
	return movies, nil
}
