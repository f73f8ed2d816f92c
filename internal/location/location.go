// Package location turns the coarse location hint of a query into a zip code.
package location

import (
	"regexp"
	"strings"
)

// DefaultZip is used when a query carries no usable location.
const DefaultZip = "84070"

var zipPattern = regexp.MustCompile(`^\d{5}$`)

var cityZips = map[string]string{
	"american fork":      "84003",
	"centerville":        "84014",
	"cottonwood heights": "84121",
	"draper":             "84020",
	"holladay":           "84117",
	"layton":             "84041",
	"lehi":               "84043",
	"logan":              "84341",
	"murray":             "84107",
	"ogden":              "84401",
	"orem":               "84057",
	"provo":              "84601",
	"riverton":           "84065",
	"salt lake city":     "84101",
	"sandy":              "84070",
	"south jordan":       "84095",
	"south salt lake":    "84115",
	"st george":          "84770",
	"st. george":         "84770",
	"taylorsville":       "84129",
	"vineyard":           "84059",
	"west jordan":        "84084",
	"west valley":        "84119",
	"west valley city":   "84119",
}

// Resolver maps hints to zips with a configurable fallback.
type Resolver struct {
	fallback string
}

// NewResolver returns a Resolver; an invalid fallback falls back to DefaultZip.
func NewResolver(fallback string) *Resolver {
	fallback = strings.TrimSpace(fallback)
	if !zipPattern.MatchString(fallback) {
		fallback = DefaultZip
	}
	return &Resolver{fallback: fallback}
}

// Resolve returns hint itself when it is a zip code, the zip of a known city
// (optionally suffixed with ", UT"), or the fallback zip.
func (r *Resolver) Resolve(hint string) string {
	h := strings.TrimSpace(hint)
	if zipPattern.MatchString(h) {
		return h
	}
	// "84070-1234"
	if len(h) == 10 && h[5] == '-' && zipPattern.MatchString(h[:5]) {
		return h[:5]
	}
	city := strings.ToLower(h)
	if i := strings.Index(city, ","); i >= 0 {
		city = strings.TrimSpace(city[:i])
	}
	city = strings.Join(strings.Fields(city), " ")
	if zip, ok := cityZips[city]; ok {
		return zip
	}
	return r.fallback
}

// Resolve uses DefaultZip as the fallback.
func Resolve(hint string) string {
	return NewResolver(DefaultZip).Resolve(hint)
}
