package calendar

import "time"

// WithNow overrides the clock used to pick the calendar year.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// DecodeEntities exposes the widget unescaping for tests.
var DecodeEntities = decodeEntities

// ParseClock exposes the time of day parser for tests, returning hour and minute.
func ParseClock(s string) (int, int, error) {
	c, err := parseClock(s)
	return c.hour, c.minute, err
}
