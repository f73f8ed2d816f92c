package aggregator

import (
	"strings"

	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// Chains whose names identify the operator. Venues of two different chains
// are never the same place.
var knownChains = []string{"megaplex", "cinemark", "amc", "century", "fatcats", "regal", "harkins"}

// Landmarks name the site of a venue regardless of how a source titles it.
var landmarks = []string{
	"jordan commons", "thanksgiving point", "the district", "gateway", "daybreak",
	"valley fair", "cottonwood", "vineyard", "geneva", "lehi", "sugarhouse",
	"university mall", "station park", "legacy crossing",
}

// Words that say nothing about which venue is meant.
var genericTokens = map[string]struct{}{
	"the": {}, "at": {}, "and": {}, "of": {},
	"theatre": {}, "theatres": {}, "theater": {}, "theaters": {},
	"cinema": {}, "cinemas": {}, "city": {}, "movies": {}, "megaplex": {},
	"cinemark": {}, "xd": {}, "imax": {}, "dine": {}, "in": {}, "luxury": {},
}

// SameVenue reports whether a and b describe the same physical venue.
// Canonical ids decide first, then case-insensitive names, then landmarks,
// then distinguishing words: the shorter name's must all appear in the other.
func SameVenue(a, b showtime.Theater) bool {
	if a.VenueID != "" && b.VenueID != "" {
		if a.VenueID == b.VenueID {
			return true
		}
		if a.Source == b.Source {
			return false
		}
	}
	na, nb := match.Normalize(a.Name), match.Normalize(b.Name)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	ca, cb := chainOf(na), chainOf(nb)
	if ca != "" && cb != "" && ca != cb {
		return false
	}

	la, lb := landmarksOf(na), landmarksOf(nb)
	if len(la) > 0 && len(lb) > 0 {
		for _, l := range la {
			for _, m := range lb {
				if l == m {
					return true
				}
			}
		}
		return false
	}

	ta, tb := distinguishing(na), distinguishing(nb)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	// One shared word is enough only within the same chain.
	need := 2
	if ca != "" && ca == cb {
		need = 1
	}
	if len(ta) < need {
		return false
	}
	for tok := range ta {
		if _, ok := tb[tok]; !ok {
			return false
		}
	}
	return true
}

func chainOf(normalized string) string {
	for _, c := range knownChains {
		if containsWord(normalized, c) {
			return c
		}
	}
	return ""
}

func landmarksOf(normalized string) []string {
	var out []string
	for _, l := range landmarks {
		if containsWord(normalized, l) {
			out = append(out, l)
		}
	}
	return out
}

func containsWord(s, phrase string) bool {
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func distinguishing(normalized string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.Fields(normalized) {
		if _, generic := genericTokens[tok]; !generic {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Merge combines per-source results into one entry per venue. Scraped entries
// are kept first and take precedence over structured entries for the same
// venue. The result is sorted by venue name.
func Merge(scraped, structured []showtime.Theater) []showtime.Theater {
	var out []showtime.Theater
	add := func(t showtime.Theater) {
		for _, kept := range out {
			if SameVenue(kept, t) {
				return
			}
		}
		out = append(out, t)
	}
	for _, t := range scraped {
		add(t)
	}
	for _, t := range structured {
		add(t)
	}
	showtime.SortTheaters(out)
	return out
}
