// Package anomaly collects per-item problems found while normalizing vendor data.
//
// Anomalies never stop a batch: the offending item is skipped or defaulted and the
// problem is reported here so that it can be summarized once per run.
package anomaly

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind identifies a class of anomaly.
type Kind string

const (
	// KindCalendarJSON is an embedded calendar attribute which is not valid JSON.
	KindCalendarJSON Kind = "calendar_json"
	// KindCalendarDay is a day key which does not name a valid day of its month.
	KindCalendarDay Kind = "calendar_day"
	// KindTimeParse is an opening or closing time in none of the accepted formats.
	KindTimeParse Kind = "time_parse"
	// KindTimeRange is an opening window with identical opening and closing times.
	KindTimeRange Kind = "time_range"
	// KindDuplicateDate is a second calendar entry for an already scheduled date.
	KindDuplicateDate Kind = "duplicate_date"
	// KindUnknownStatus is a closure flag which is neither "true" nor "false".
	KindUnknownStatus Kind = "unknown_status"
	// KindWaitTime is a wait time which is not a number.
	KindWaitTime Kind = "wait_time"
	// KindLocation is a coordinate which is present but not numeric.
	KindLocation Kind = "location"
	// KindRecord is a catalog or live feed record which could not be decoded.
	KindRecord Kind = "record"
	// KindFeedShape is a live feed whose shape diverges from the catalog.
	KindFeedShape Kind = "feed_shape"
)

// maxExamples is the number of example identifiers kept per kind.
const maxExamples = 3

// Reporter receives anomalies.
type Reporter interface {
	Report(kind Kind, example string)
}

type discard struct{}

func (discard) Report(Kind, string) {}

// Discard is a Reporter which drops everything.
var Discard Reporter = discard{}

type info struct {
	count    int
	examples []string
}

// Aggregator counts anomalies per kind and keeps a few examples of each.
// It is safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	entries map[Kind]*info

	counter *prometheus.CounterVec
}

type options struct {
	counter *prometheus.CounterVec
}

// Options represents an optional function to override Aggregator default values.
type Options func(*options)

// WithCounter increments the given counter, labeled by kind, on every report.
func WithCounter(c *prometheus.CounterVec) Options {
	return func(o *options) {
		o.counter = c
	}
}

// NewAggregator returns an empty Aggregator.
func NewAggregator(args ...Options) *Aggregator {
	var opts options
	for _, opt := range args {
		opt(&opts)
	}

	return &Aggregator{
		entries: make(map[Kind]*info),
		counter: opts.counter,
	}
}

// Report records one occurrence of kind.
func (a *Aggregator) Report(kind Kind, example string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.entries[kind]
	if e == nil {
		e = &info{examples: make([]string, 0, maxExamples)}
		a.entries[kind] = e
	}
	e.count++
	if len(e.examples) < maxExamples {
		e.examples = append(e.examples, example)
	}

	if a.counter != nil {
		a.counter.WithLabelValues(string(kind)).Inc()
	}
}

// Counts returns the number of occurrences per kind.
func (a *Aggregator) Counts() map[Kind]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[Kind]int, len(a.entries))
	for k, e := range a.entries {
		counts[k] = e.count
	}
	return counts
}

// Examples returns the retained examples for kind.
func (a *Aggregator) Examples(kind Kind) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.entries[kind]
	if e == nil {
		return nil
	}
	return slices.Clone(e.examples)
}

// Reset forgets every recorded anomaly.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.entries)
}

// LogAll logs one warning per kind, in a stable order.
func (a *Aggregator) LogAll(log *slog.Logger, park string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, k := range slices.Sorted(maps.Keys(a.entries)) {
		e := a.entries[k]
		log.Warn(fmt.Sprintf("Park %s has %s", park, describe(k)),
			"kind", k, "count", e.count, "examples", strings.Join(e.examples, ", "))
	}
}

func describe(k Kind) string {
	switch k {
	case KindCalendarJSON:
		return "an unreadable calendar attribute, schedule left empty"
	case KindCalendarDay:
		return "calendar days outside their month, days skipped"
	case KindTimeParse:
		return "unparseable opening hours, days skipped"
	case KindTimeRange:
		return "empty opening windows, days skipped"
	case KindDuplicateDate:
		return "duplicate calendar dates, first entry kept"
	case KindUnknownStatus:
		return "unknown closure flags, reported as operating"
	case KindWaitTime:
		return "non numeric wait times"
	case KindLocation:
		return "non numeric coordinates, location omitted"
	case KindRecord:
		return "undecodable records, records skipped"
	case KindFeedShape:
		return "a live feed diverging from its catalog"
	default:
		return "unclassified anomalies"
	}
}
