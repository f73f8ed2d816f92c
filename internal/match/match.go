// Package match holds the title matching and format classification rules
// shared by every showtime source, so cross-source comparisons agree.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordOverlapThreshold is the share of the shorter title's words that must
// also appear in the other title.
const wordOverlapThreshold = 0.7

var (
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRun      = regexp.MustCompile(`\s+`)

	// Applied to normalized titles.
	formatSuffix = regexp.MustCompile(`\s*(3d|imax|an imax.*experience|the imax.*experience|dolby cinema)$`)

	// Applied to display titles.
	displayFormatSuffix = regexp.MustCompile(`(?i)\s*[(\[]?\s*(3D|IMAX|An IMAX.*Experience|The IMAX.*Experience|Dolby Cinema)\s*[)\]]?\s*$`)
)

// Normalize lowercases title, folds accents, strips everything but ASCII
// letters, digits and spaces, and collapses whitespace.
func Normalize(title string) string {
	s := foldAccents(title)
	s = strings.ToLower(s)
	s = nonAlnumSpace.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Titles reports whether two movie titles refer to the same film.
func Titles(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if containsEither(na, nb) {
		return true
	}
	ba, bb := baseNormalized(na), baseNormalized(nb)
	if ba != "" && bb != "" && containsEither(ba, bb) {
		return true
	}
	return wordOverlap(na, nb)
}

func containsEither(a, b string) bool {
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// baseNormalized strips trailing format tokens from a normalized title.
func baseNormalized(n string) string {
	for {
		stripped := strings.TrimSpace(formatSuffix.ReplaceAllString(n, ""))
		if stripped == n {
			return n
		}
		n = stripped
	}
}

func wordOverlap(a, b string) bool {
	wa, wb := strings.Fields(a), strings.Fields(b)
	shorter := len(wa)
	if len(wb) < shorter {
		shorter = len(wb)
	}
	if shorter == 0 {
		return false
	}
	inB := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		inB[w] = struct{}{}
	}
	common := 0
	for _, w := range wa {
		if len(w) <= 2 {
			continue
		}
		if _, ok := inB[w]; ok {
			common++
		}
	}
	return float64(common) >= float64(shorter)*wordOverlapThreshold
}

// BaseTitle strips a trailing format marker such as "(3D)" or
// "An IMAX 70mm Experience" from a display title, keeping its casing.
func BaseTitle(title string) string {
	t := strings.TrimSpace(title)
	for {
		stripped := strings.TrimRight(displayFormatSuffix.ReplaceAllString(t, ""), " :-–")
		if stripped == t || stripped == "" {
			return t
		}
		t = stripped
	}
}

// FoldKey is the grouping key for provider title variants.
func FoldKey(title string) string {
	return Normalize(BaseTitle(title))
}

// Leading returns the part of a title before its first colon, e.g. "Avatar"
// for "Avatar: Fire and Ash". Titles without a colon are returned unchanged.
func Leading(title string) string {
	if i := strings.Index(title, ":"); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return strings.TrimSpace(title)
}
