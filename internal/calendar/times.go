package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// clockLayouts are the accepted spellings of a time of day, tried in order.
var clockLayouts = []string{
	"3:04pm",
	"3pm",
	"15:04",
}

var errNoWindow = errors.New("label is not an opening window")

// clock is a time of day.
type clock struct {
	hour, minute int
}

func (c clock) before(o clock) bool {
	return c.hour < o.hour || (c.hour == o.hour && c.minute < o.minute)
}

// parseClock parses "10:00am", "6 PM", "10am" or "18:00".
func parseClock(s string) (clock, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)

	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, normalized)
		if err == nil {
			return clock{hour: t.Hour(), minute: t.Minute()}, nil
		}
	}

	return clock{}, fmt.Errorf("unrecognized time of day %q", s)
}

// splitWindow splits "10:00am - 6:00pm" into its two non-empty sides.
func splitWindow(label string) (opening, closing string, err error) {
	parts := strings.Split(label, " - ")
	if len(parts) != 2 {
		return "", "", errNoWindow
	}

	opening, closing = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if opening == "" || closing == "" {
		return "", "", errNoWindow
	}
	return opening, closing, nil
}
