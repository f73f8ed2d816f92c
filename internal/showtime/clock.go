package showtime

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Clock is a venue-local wall-clock time, in minutes after midnight.
type Clock int

var (
	// 2024-03-01T19:30, 2024-03-01T19:30:00-07:00
	isoClockPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ](\d{1,2}):(\d{2})`)
	// 7:30 PM, 7:30pm, 19:30, 7:30 p.m.
	textClockPattern = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*([ap])?\.?\s*(m\.?)?`)

	// TimeTokenPattern finds time-like tokens with an explicit meridiem in free text.
	TimeTokenPattern = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:[ap]\.?m\.?)`)
)

// NewClock builds a Clock from a 24-hour hour and minute.
func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// Hour returns the 24-hour hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// String renders the time as "7:30 PM".
func (c Clock) String() string {
	h := c.Hour()
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), meridiem)
}

// ParseClock extracts a wall-clock time from s. ISO date-times keep their
// wall-clock fields verbatim; no zone conversion is applied. A bare "h:mm"
// with an hour from 1 to 11 and no meridiem is read as PM.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if m := isoClockPattern.FindStringSubmatch(s); m != nil {
		return clockFromParts(m[1], m[2], "24h")
	}
	m := textClockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("no time in %q", s)
	}
	meridiem := strings.ToLower(m[3])
	if meridiem != "" && m[4] == "" {
		// "7:30 a" without the trailing m is not a meridiem we trust.
		meridiem = ""
	}
	return clockFromParts(m[1], m[2], meridiem)
}

func clockFromParts(hs, ms, meridiem string) (Clock, error) {
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, err
	}
	if m > 59 || h > 23 {
		return 0, fmt.Errorf("time out of range %s:%s", hs, ms)
	}
	switch meridiem {
	case "a":
		if h > 12 {
			return 0, fmt.Errorf("invalid 12-hour time %s:%s am", hs, ms)
		}
		if h == 12 {
			h = 0
		}
	case "p":
		if h > 12 {
			return 0, fmt.Errorf("invalid 12-hour time %s:%s pm", hs, ms)
		}
		if h != 12 {
			h += 12
		}
	case "24h":
	default:
		if h >= 1 && h < 12 {
			h += 12
		}
	}
	return NewClock(h, m), nil
}

// MarshalJSON encodes the clock as its rendered string.
func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// UnmarshalJSON accepts the rendered string or a minute count.
func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return err
		}
		*c = Clock(n)
		return nil
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
