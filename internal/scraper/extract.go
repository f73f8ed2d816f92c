package scraper

import (
	"context"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/match"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// extraction is what one strategy recovered for a venue.
type extraction struct {
	Slots   []showtime.Slot
	Address string
}

func (e extraction) empty() bool { return len(e.Slots) == 0 }

// step is one strategy of an extraction chain.
type step struct {
	name string
	run  func(ctx context.Context) extraction
}

// firstNonEmpty runs steps in order and returns the first result with slots.
func firstNonEmpty(ctx context.Context, log logger.Logger, steps ...step) extraction {
	for _, s := range steps {
		if ctx.Err() != nil {
			return extraction{}
		}
		ex := s.run(ctx)
		if !ex.empty() {
			log.Debugf("%s: %d slots", s.name, len(ex.Slots))
			return ex
		}
		log.Debugf("%s: nothing", s.name)
	}
	return extraction{}
}

// sectionSelectors locate movie blocks in a chain's listing markup.
type sectionSelectors struct {
	Section string
	Title   string
	Slot    string
	Address string
}

func parseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseSections finds the movie block for title and reads its showtime
// elements. When blocks nest, the one holding the fewest showtime elements
// wins so that a page-wide wrapper never absorbs other movies' times.
func parseSections(doc *goquery.Document, sel sectionSelectors, title string) extraction {
	var best *goquery.Selection
	bestCount := 0
	doc.Find(sel.Section).Each(func(_ int, s *goquery.Selection) {
		name := cleanText(s.Find(sel.Title).First().Text())
		if name == "" || !match.Titles(name, title) {
			return
		}
		n := s.Find(sel.Slot).Length()
		if n == 0 {
			return
		}
		if best == nil || n < bestCount {
			best, bestCount = s, n
		}
	})
	if best == nil {
		return extraction{}
	}

	ex := extraction{Slots: readSlots(best.Find(sel.Slot), cleanText(best.Find(sel.Title).First().Text()))}
	if sel.Address != "" {
		addr := best.Find(sel.Address).First()
		if addr.Length() == 0 {
			addr = doc.Find(sel.Address).First()
		}
		ex.Address = cleanText(addr.Text())
	}
	return ex
}

// readSlots turns showtime elements into slots. Format comes from classes and
// data attributes, availability from disabled or sold-out markers.
func readSlots(nodes *goquery.Selection, title string) []showtime.Slot {
	var slots []showtime.Slot
	nodes.Each(func(_ int, s *goquery.Selection) {
		raw := cleanText(s.Text())
		if !showtime.TimeTokenPattern.MatchString(raw) {
			if dt, ok := s.Attr("datetime"); ok {
				raw = dt
			} else if ds, ok := s.Attr("data-showtime"); ok {
				raw = ds
			}
		}
		clock, err := showtime.ParseClock(raw)
		if err != nil {
			return
		}
		class := s.AttrOr("class", "")
		classes := strings.Join([]string{class, s.AttrOr("data-format", ""), s.AttrOr("data-experience", "")}, " ")
		_, disabled := s.Attr("disabled")
		lower := strings.ToLower(class)
		slots = append(slots, showtime.Slot{
			Time:      clock,
			Format:    match.DetectFormat(match.Signals{Qualifiers: s.AttrOr("aria-label", ""), Classes: classes, Title: title}),
			Available: !disabled && !strings.Contains(lower, "disabled") && !strings.Contains(lower, "sold"),
		})
	})
	return slots
}

// listedTitles gathers the movie names a listing page shows.
func listedTitles(doc *goquery.Document, sel sectionSelectors) []string {
	var titles []string
	add := func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" && len(t) < 120 {
			titles = append(titles, t)
		}
	}
	doc.Find(sel.Section).Find(sel.Title).Each(add)
	doc.Find("h1, h2, h3, h4").Each(add)
	return titles
}

func listed(titles []string, title string) bool {
	for _, t := range titles {
		if match.Titles(t, title) {
			return true
		}
	}
	return false
}

// scanWindow bounds how many lines after the title line are searched.
const scanWindow = 40

// scanText renders the page to markdown and collects time tokens from the
// first line naming the movie and the lines after it. A line that only names
// a format applies it to the times below it.
func scanText(html, title string) extraction {
	key := match.FoldKey(title)
	if key == "" {
		return extraction{}
	}
	lines := renderLines(html)

	start := -1
	for i, line := range lines {
		if strings.Contains(match.Normalize(line), key) {
			start = i
			break
		}
	}
	if start < 0 {
		return extraction{}
	}
	level := headingLevel(lines[start])

	var slots []showtime.Slot
	current := showtime.FormatStandard
	end := min(len(lines), start+1+scanWindow)
	for i, line := range lines[start:end] {
		if l := headingLevel(line); i > 0 && level > 0 && l > 0 && l <= level {
			break
		}
		tokens := showtime.TimeTokenPattern.FindAllString(line, -1)
		lineFormat := match.DetectFormat(match.Signals{Qualifiers: line})
		if len(tokens) == 0 {
			if lineFormat != showtime.FormatStandard {
				current = lineFormat
			}
			continue
		}
		format := current
		if lineFormat.Rank() > format.Rank() {
			format = lineFormat
		}
		for _, tok := range tokens {
			clock, err := showtime.ParseClock(tok)
			if err != nil {
				continue
			}
			slots = append(slots, showtime.Slot{Time: clock, Format: format, Available: true})
		}
	}
	return extraction{Slots: slots}
}

func renderLines(html string) []string {
	doc, err := parseHTML(html)
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript, iframe, svg, canvas, img, video, picture").Remove()
	if html, err = doc.Html(); err != nil {
		return nil
	}
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		text = doc.Find("body").Text()
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}
