package match_test

import (
	"testing"

	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Dune: Part Two":           "dune part two",
		"  Spider-Man:   No Way  ": "spiderman no way",
		"Amélie":                   "amelie",
		"WALL·E":                   "walle",
		"":                         "",
	}
	for in, want := range cases {
		if got := match.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTitles(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Avatar: Fire and Ash", "avatar", true},
		{"Inside Out 2", "Inside Out", true},
		{"Oppenheimer", "Barbie", false},
		{"Dune: Part Two", "DUNE PART TWO", true},
		{"Dune: Part Two 3D", "Dune Part Two", true},
		{"Dune: Part Two - The IMAX 2D Experience", "Dune: Part Two", true},
		{"The Lord of the Rings: The Return of the King", "Return of the King Lord Rings", true},
		{"Mission Impossible Dead Reckoning", "Mission Impossible Fallout", false},
		{"", "Barbie", false},
	}
	for _, tc := range cases {
		if got := match.Titles(tc.a, tc.b); got != tc.want {
			t.Fatalf("Titles(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := match.Titles(tc.b, tc.a); got != tc.want {
			t.Fatalf("Titles(%q, %q) is not symmetric", tc.b, tc.a)
		}
	}
}

func TestBaseTitle(t *testing.T) {
	cases := map[string]string{
		"Avatar: Fire and Ash (3D)":                "Avatar: Fire and Ash",
		"Avatar: Fire and Ash 3D":                  "Avatar: Fire and Ash",
		"Dune: Part Two [IMAX]":                    "Dune: Part Two",
		"Dune: Part Two: The IMAX 70mm Experience": "Dune: Part Two",
		"Wicked Dolby Cinema":                      "Wicked",
		"Inside Out 2":                             "Inside Out 2",
	}
	for in, want := range cases {
		if got := match.BaseTitle(in); got != want {
			t.Fatalf("BaseTitle(%q) = %q, want %q", in, got, want)
		}
	}
	if match.FoldKey("Avatar: Fire and Ash (3D)") != match.FoldKey("AVATAR: FIRE AND ASH") {
		t.Fatal("format variants should share a fold key")
	}
}

func TestDetectFormatPriority(t *testing.T) {
	cases := []struct {
		sig  match.Signals
		want showtime.Format
	}{
		{match.Signals{Qualifiers: "3d, imax, reserved seating"}, showtime.FormatIMAX},
		{match.Signals{Qualifiers: "Closed Caption, Dolby Cinema"}, showtime.FormatDolby},
		{match.Signals{Qualifiers: "Dolby Atmos, 3D"}, showtime.Format3D},
		{match.Signals{Classes: "showtime-btn xd"}, showtime.FormatXD},
		{match.Signals{Classes: "btn-boxd"}, showtime.FormatStandard},
		{match.Signals{Qualifiers: "Reserved Seating"}, showtime.FormatStandard},
		{match.Signals{Qualifiers: "Standard", Title: "Avatar 3D"}, showtime.Format3D},
		{match.Signals{Qualifiers: "xd", Title: "Dune: Part Two (IMAX)"}, showtime.FormatIMAX},
		{match.Signals{}, showtime.FormatStandard},
	}
	for _, tc := range cases {
		if got := match.DetectFormat(tc.sig); got != tc.want {
			t.Fatalf("DetectFormat(%+v) = %s, want %s", tc.sig, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if match.ParseFormat("imax_laser") != showtime.FormatIMAX {
		t.Fatal("expected IMAX for imax_laser")
	}
	if match.ParseFormat("Luxury Recliners") != showtime.FormatStandard {
		t.Fatal("expected Standard for unknown label")
	}
}

func TestLeading(t *testing.T) {
	if got := match.Leading("Avatar: Fire and Ash"); got != "Avatar" {
		t.Fatalf("Leading = %q", got)
	}
	if got := match.Leading("Barbie"); got != "Barbie" {
		t.Fatalf("Leading = %q", got)
	}
}
