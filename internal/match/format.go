package match

import (
	"regexp"
	"strings"

	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// Signals are the free-form hints a source has about one screening.
type Signals struct {
	// Qualifiers is descriptive text such as "Closed Caption, IMAX, Reserved Seating".
	Qualifiers string
	// Classes holds CSS-class-like tokens and data attributes, e.g. "showtime-btn xd".
	Classes string
	// Title is the movie title as the source lists it; "Avatar 3D" hints 3D.
	Title string
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// DetectFormat classifies a screening, returning the highest-priority format
// found in any signal: IMAX > 3D > Dolby/Atmos > XD > Standard. A hint in the
// title therefore overrides a weaker default from the qualifiers.
func DetectFormat(sig Signals) showtime.Format {
	best := showtime.FormatStandard
	for _, text := range []string{sig.Qualifiers, sig.Classes, sig.Title} {
		if f := formatFromText(text); f.Rank() > best.Rank() {
			best = f
		}
	}
	return best
}

// ParseFormat maps a free label like "Dolby Cinema" or "imax_laser" to a Format.
func ParseFormat(label string) showtime.Format {
	return DetectFormat(Signals{Qualifiers: label})
}

func formatFromText(text string) showtime.Format {
	if text == "" {
		return showtime.FormatStandard
	}
	best := showtime.FormatStandard
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if f := formatFromToken(tok); f.Rank() > best.Rank() {
			best = f
		}
	}
	return best
}

func formatFromToken(tok string) showtime.Format {
	switch {
	case tok == "":
		return showtime.FormatStandard
	case strings.HasPrefix(tok, "imax"):
		return showtime.FormatIMAX
	case tok == "3d", tok == "real3d", tok == "reald3d", tok == "reald":
		return showtime.Format3D
	case strings.HasPrefix(tok, "dolby"), tok == "atmos":
		return showtime.FormatDolby
	case tok == "xd", tok == "cinemarkxd":
		return showtime.FormatXD
	}
	return showtime.FormatStandard
}
