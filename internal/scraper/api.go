package scraper

import (
	"encoding/json"
	"strings"

	"github.com/leonardcser/showtime-mcp/internal/browser"
	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// apiPayload covers the showtime JSON shapes the chain sites serve. Megaplex
// nests movies under "data" on some endpoints; Cinemark uses "name" and
// "theaterAddress".
type apiPayload struct {
	Movies []apiMovie      `json:"movies"`
	Data   json.RawMessage `json:"data"`
}

type apiMovie struct {
	Title          string        `json:"title"`
	Name           string        `json:"name"`
	TheaterAddress string        `json:"theaterAddress"`
	Showtimes      []apiShowtime `json:"showtimes"`
}

func (m apiMovie) displayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

type apiShowtime struct {
	Time           string `json:"time"`
	Showtime       string `json:"showtime"`
	Format         string `json:"format"`
	Experience     string `json:"experience"`
	AuditoriumType string `json:"auditorium_type"`
	Available      *bool  `json:"available"`
}

// decodeMovies returns the movies in body, or nil when body is not one of the
// known shapes.
func decodeMovies(body []byte) []apiMovie {
	var p apiPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil
	}
	if len(p.Movies) > 0 {
		return p.Movies
	}
	if len(p.Data) == 0 {
		return nil
	}
	var nested struct {
		Movies []apiMovie `json:"movies"`
	}
	if err := json.Unmarshal(p.Data, &nested); err == nil && len(nested.Movies) > 0 {
		return nested.Movies
	}
	var list []apiMovie
	if err := json.Unmarshal(p.Data, &list); err == nil {
		return list
	}
	return nil
}

// fromAPI extracts the slots of the movie matching title from decoded
// payloads. The first matching movie with times wins.
func fromAPI(movies []apiMovie, title string) extraction {
	var ex extraction
	for _, m := range movies {
		name := m.displayTitle()
		if name == "" || !match.Titles(name, title) {
			continue
		}
		for _, st := range m.Showtimes {
			raw := st.Time
			if raw == "" {
				raw = st.Showtime
			}
			clock, err := showtime.ParseClock(raw)
			if err != nil {
				continue
			}
			quals := strings.Join([]string{st.Format, st.Experience, st.AuditoriumType}, " ")
			ex.Slots = append(ex.Slots, showtime.Slot{
				Time:      clock,
				Format:    match.DetectFormat(match.Signals{Qualifiers: quals, Title: name}),
				Available: st.Available == nil || *st.Available,
			})
		}
		if len(ex.Slots) > 0 {
			ex.Address = strings.TrimSpace(m.TheaterAddress)
			return ex
		}
	}
	return extraction{}
}

// apiTitles lists every movie title found in the captured responses.
func apiTitles(responses []browser.Response) []string {
	var titles []string
	for _, r := range responses {
		for _, m := range decodeMovies(r.Body) {
			if t := m.displayTitle(); t != "" {
				titles = append(titles, t)
			}
		}
	}
	return titles
}

// isJSONCapture is the response filter for chain API traffic.
func isJSONCapture(host string) browser.Filter {
	return func(url, mimeType string) bool {
		if !strings.Contains(strings.ToLower(mimeType), "json") {
			return false
		}
		return strings.Contains(url, "/api/") || (strings.Contains(url, host) && strings.Contains(url, ".json"))
	}
}
