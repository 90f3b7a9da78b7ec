// Package calendar extracts park opening hours from the calendar widget of a park website.
//
// The widget embeds two hidden inputs: "data-hour-<year>", an array of twelve months
// mapping day numbers to opening codes, and "data-hour-labels", an array of single
// entry objects mapping each code to a label such as "10:00am - 6:00pm" or "Closed".
package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
	"github.com/parkfeeds/parques-reunidos/internal/models"
	"golang.org/x/text/cases"
)

const closedMarker = "closed"

// Extractor turns a calendar page into the schedule of one park.
// It holds no mutable state and can be shared between goroutines.
type Extractor struct {
	parkID string
	loc    *time.Location

	now      func() time.Time
	log      *slog.Logger
	reporter anomaly.Reporter
}

type options struct {
	now      func() time.Time
	log      *slog.Logger
	reporter anomaly.Reporter
}

// Options represents an optional function to override Extractor default values.
type Options func(*options)

// WithLogger sets the logger used for skipped days.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithReporter sets where skipped days are reported.
func WithReporter(r anomaly.Reporter) Options {
	return func(o *options) {
		o.reporter = r
	}
}

// New returns an Extractor producing the schedule of parkID in loc.
func New(parkID string, loc *time.Location, args ...Options) *Extractor {
	opts := options{
		now:      time.Now,
		log:      slog.Default(),
		reporter: anomaly.Discard,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Extractor{
		parkID:   parkID,
		loc:      loc,
		now:      opts.now,
		log:      opts.log,
		reporter: opts.reporter,
	}
}

// Extract returns the opening windows of the current year found in page.
//
// The result always holds a single bundle for the park. Its schedule is empty when
// the page has no calendar for the current year.
func (e *Extractor) Extract(page []byte) []models.ScheduleBundle {
	year := e.now().In(e.loc).Year()
	return []models.ScheduleBundle{{
		ID:       e.parkID,
		Schedule: e.schedule(page, year),
	}}
}

func (e *Extractor) schedule(page []byte, year int) []models.ScheduleEntry {
	schedule := []models.ScheduleEntry{}

	yearID := yearAttrPrefix + strconv.Itoa(year)
	values, err := findValues(page, yearID, labelsAttrID)
	if err != nil {
		e.log.Warn("Could not parse calendar page", "error", err)
		return schedule
	}

	rawYear, okYear := values[yearID]
	rawLabels, okLabels := values[labelsAttrID]
	if !okYear || !okLabels {
		e.log.Debug("No calendar on page", "year", year, "hasYear", okYear, "hasLabels", okLabels)
		return schedule
	}

	labels, err := parseLabels(decodeEntities(rawLabels))
	if err != nil {
		e.log.Warn("Invalid calendar labels", "error", err)
		e.reporter.Report(anomaly.KindCalendarJSON, labelsAttrID)
		return schedule
	}
	var rawMonths []json.RawMessage
	if err := json.Unmarshal([]byte(decodeEntities(rawYear)), &rawMonths); err != nil {
		e.log.Warn("Invalid calendar days", "year", year, "error", err)
		e.reporter.Report(anomaly.KindCalendarJSON, yearID)
		return schedule
	}

	if len(rawMonths) > 12 {
		e.log.Debug("Ignoring extra calendar months", "months", len(rawMonths))
		rawMonths = rawMonths[:12]
	}

	months := make([][]day, len(rawMonths))
	for i, rawMonth := range rawMonths {
		days, err := parseMonth(rawMonth)
		if err != nil {
			e.log.Warn("Invalid calendar month", "year", year, "month", i+1, "error", err)
			e.reporter.Report(anomaly.KindCalendarJSON, fmt.Sprintf("%s/%d", yearID, i+1))
			continue
		}
		months[i] = days
	}

	seen := make(map[string]bool)
	for i, days := range months {
		month := time.Month(i + 1)
		for _, d := range days {
			entry, ok := e.entry(year, month, d, labels)
			if !ok {
				continue
			}
			if seen[entry.Date] {
				e.log.Warn("Duplicate calendar date, keeping the first one", "date", entry.Date, "key", d.key)
				e.reporter.Report(anomaly.KindDuplicateDate, entry.Date)
				continue
			}
			seen[entry.Date] = true
			schedule = append(schedule, entry)
		}
	}

	return schedule
}

// entry builds the schedule entry of one day. It returns false for days which are
// closed or which could not be understood.
func (e *Extractor) entry(year int, month time.Month, d day, labels map[string]string) (models.ScheduleEntry, bool) {
	label, ok := labels[d.code]
	if !ok || strings.Contains(cases.Fold().String(label), closedMarker) {
		return models.ScheduleEntry{}, false
	}

	dayNum, err := strconv.Atoi(strings.TrimSpace(d.key))
	date := time.Date(year, month, dayNum, 0, 0, 0, 0, e.loc)
	if err != nil || date.Month() != month || date.Day() != dayNum {
		e.log.Warn("Invalid calendar day", "month", int(month), "day", d.key)
		e.reporter.Report(anomaly.KindCalendarDay, fmt.Sprintf("%d-%s", month, d.key))
		return models.ScheduleEntry{}, false
	}
	dateStr := date.Format(time.DateOnly)

	openingStr, closingStr, err := splitWindow(label)
	if err != nil {
		e.log.Debug("Skipping calendar label", "date", dateStr, "label", label)
		return models.ScheduleEntry{}, false
	}

	opening, err := parseClock(openingStr)
	if err == nil {
		var closing clock
		closing, err = parseClock(closingStr)
		if err == nil {
			return e.window(date, opening, closing)
		}
	}

	e.log.Warn("Unparseable opening hours", "date", dateStr, "label", label, "error", err)
	e.reporter.Report(anomaly.KindTimeParse, dateStr)
	return models.ScheduleEntry{}, false
}

// window anchors opening and closing on date. A closing time earlier than the
// opening time belongs to the following day.
func (e *Extractor) window(date time.Time, opening, closing clock) (models.ScheduleEntry, bool) {
	dateStr := date.Format(time.DateOnly)
	if opening == closing {
		e.log.Warn("Empty opening window", "date", dateStr)
		e.reporter.Report(anomaly.KindTimeRange, dateStr)
		return models.ScheduleEntry{}, false
	}

	y, m, d := date.Date()
	start := time.Date(y, m, d, opening.hour, opening.minute, 0, 0, e.loc)
	if closing.before(opening) {
		d++
	}
	end := time.Date(y, m, d, closing.hour, closing.minute, 0, 0, e.loc)

	return models.ScheduleEntry{
		Date:        dateStr,
		OpeningTime: start.Format(time.RFC3339),
		ClosingTime: end.Format(time.RFC3339),
		Type:        models.ScheduleTypeOperating,
	}, true
}

// day is one day key of a month with its opening code.
type day struct {
	key  string
	code string
}

// parseLabels reads the label dictionary. Entries whose label is not a string are
// ignored; the first key of each entry wins.
func parseLabels(raw string) (map[string]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(entries))
	for _, entry := range entries {
		keys, values, err := orderedObject(entry)
		if err != nil || len(keys) == 0 {
			continue
		}

		var label string
		if err := json.Unmarshal(values[0], &label); err != nil {
			continue
		}
		labels[keys[0]] = label
	}

	return labels, nil
}

// parseMonth reads the day grid of one month. A month is either an object keyed by day
// number or an array indexed by day number. Days are sorted numerically.
func parseMonth(raw json.RawMessage) ([]day, error) {
	raw = bytes.TrimSpace(raw)
	var days []day

	switch {
	case bytes.Equal(raw, []byte("null")):
		return nil, nil

	case bytes.HasPrefix(raw, []byte("[")):
		var codes []json.RawMessage
		if err := json.Unmarshal(raw, &codes); err != nil {
			return nil, err
		}
		for i, c := range codes {
			if code, ok := codeString(c); ok {
				days = append(days, day{key: strconv.Itoa(i), code: code})
			}
		}

	default:
		keys, values, err := orderedObject(raw)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			if code, ok := codeString(values[i]); ok {
				days = append(days, day{key: k, code: code})
			}
		}
	}

	slices.SortStableFunc(days, func(a, b day) int {
		na, errA := strconv.Atoi(strings.TrimSpace(a.key))
		nb, errB := strconv.Atoi(strings.TrimSpace(b.key))
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a.key, b.key)
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		case na != nb:
			return na - nb
		default:
			return strings.Compare(a.key, b.key)
		}
	})

	return days, nil
}

// codeString returns the opening code as a string. Codes may be sent as strings or numbers.
func codeString(raw json.RawMessage) (string, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}

	return "", false
}

// orderedObject returns the keys of a JSON object in document order, with their raw values.
func orderedObject(raw json.RawMessage) (keys []string, values []json.RawMessage, err error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	t, err := d.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", t)
	}

	for d.More() {
		t, err := d.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", t)
		}

		var v json.RawMessage
		if err := d.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, v)
	}

	return keys, values, nil
}
