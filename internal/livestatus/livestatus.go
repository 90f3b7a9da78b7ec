// Package livestatus classifies the vendor live feed into canonical statuses.
//
// The vendor reports a closure flag and a wait time per attraction:
//
//	closure flag  wait time   status
//	"true"        any         DOWN
//	"false"       > 0         OPERATING
//	"false"       -3          CLOSED
//	"false"       other       OPERATING
//	other         any         OPERATING, reported as unknown
//
// A "false" flag with a wait time of zero or without wait time is ambiguous: the
// attraction may be open without queue or closed. It is reported as operating.
package livestatus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
	"github.com/parkfeeds/parques-reunidos/internal/catalog"
	"github.com/parkfeeds/parques-reunidos/internal/models"
)

// closedSentinel is the wait time sent for attractions closed for the day.
const closedSentinel = -3

// Classifier maps live feed entries to statuses.
type Classifier struct {
	log      *slog.Logger
	reporter anomaly.Reporter
}

type options struct {
	log      *slog.Logger
	reporter anomaly.Reporter
}

// Options represents an optional function to override Classifier default values.
type Options func(*options)

// WithLogger sets the logger used for unknown statuses.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithReporter sets where unknown statuses are reported.
func WithReporter(r anomaly.Reporter) Options {
	return func(o *options) {
		o.reporter = r
	}
}

// New returns a Classifier.
func New(args ...Options) *Classifier {
	opts := options{
		log:      slog.Default(),
		reporter: anomaly.Discard,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Classifier{
		log:      opts.log,
		reporter: opts.reporter,
	}
}

// Classify returns one status per feed entry matching an attraction of the catalog,
// in feed order. Entries without a matching attraction are dropped, as are repeated
// entries for the same attraction.
func (c *Classifier) Classify(attractions, feed []catalog.Record) []models.LiveStatus {
	known := make(map[string]bool, len(attractions))
	for _, a := range attractions {
		known[a.ID] = true
	}

	statuses := make([]models.LiveStatus, 0, len(feed))
	done := make(map[string]bool, len(feed))
	for _, entry := range feed {
		if !known[entry.ID] {
			c.log.Debug("Dropping live entry without attraction", "id", entry.ID)
			continue
		}
		if done[entry.ID] {
			c.log.Debug("Dropping repeated live entry", "id", entry.ID)
			continue
		}
		done[entry.ID] = true

		statuses = append(statuses, models.LiveStatus{
			ID:     models.AttractionID(entry.ID),
			Status: c.status(entry),
		})
	}

	return statuses
}

// status applies the closure flag and wait time rules to one entry.
func (c *Classifier) status(entry catalog.Record) models.Status {
	flag, ok := closureFlag(entry.TemporaryClosed)
	if !ok {
		c.log.Warn("Unknown ride status, assuming operating", "id", entry.ID, "temporaryClosed", entry.TemporaryClosed)
		c.reporter.Report(anomaly.KindUnknownStatus, entry.ID)
		return models.StatusOperating
	}

	if flag {
		return models.StatusDown
	}

	wait, err := waitMinutes(entry.WaitingTime)
	if err != nil {
		c.log.Warn("Invalid wait time", "id", entry.ID, "waitingTime", entry.WaitingTime, "error", err)
		c.reporter.Report(anomaly.KindWaitTime, entry.ID)
	}

	switch {
	case wait > 0:
		return models.StatusOperating
	case wait == closedSentinel:
		return models.StatusClosed
	default:
		c.log.Debug("Open attraction without wait time, assuming operating", "id", entry.ID, "waitingTime", wait)
		return models.StatusOperating
	}
}

// closureFlag reads the tri-state closure flag. It returns false as second value when
// the flag is neither true nor false.
func closureFlag(v any) (closed bool, known bool) {
	switch f := v.(type) {
	case bool:
		return f, true
	case string:
		switch f {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// waitMinutes reads the wait time. Missing, null and empty values are 0, as are
// values which are not numbers, which are returned along with an error.
func waitMinutes(v any) (float64, error) {
	var s string
	switch w := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		s = w.String()
	case string:
		s = strings.TrimSpace(w)
	case float64:
		return w, nil
	case int:
		return float64(w), nil
	case bool:
		return 0, fmt.Errorf("wait time is a boolean")
	default:
		return 0, fmt.Errorf("unsupported wait time type %T", v)
	}

	if s == "" {
		return 0, nil
	}

	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return w, nil
}
