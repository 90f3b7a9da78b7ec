// Package catalog decodes the vendor point of interest payloads.
//
// The attraction endpoint doubles as the live feed, so a single record type carries
// both the catalog fields and the live status fields.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
)

// ErrNotList is returned when a payload is not a JSON array.
var ErrNotList = errors.New("payload is not a JSON array")

// Point is a geocoordinate as sent by the vendor, numbers encoded as strings.
type Point struct {
	Longitude string `mapstructure:"longitude"`
	Latitude  string `mapstructure:"latitude"`
}

// Place wraps the location of a record.
type Place struct {
	Point Point `mapstructure:"point"`
}

// Record is one attraction or restaurant.
type Record struct {
	ID               string            `mapstructure:"id"`
	Name             string            `mapstructure:"name"`
	TranslatableName map[string]string `mapstructure:"translatableName"`
	Place            Place             `mapstructure:"place"`

	// Live feed fields, left as sent since their type varies between feeds.
	TemporaryClosed any `mapstructure:"temporaryClosed"`
	WaitingTime     any `mapstructure:"waitingTime"`
}

type options struct {
	log      *slog.Logger
	reporter anomaly.Reporter
}

// Options represents an optional function to override Decode default values.
type Options func(*options)

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithReporter sets where skipped records are reported.
func WithReporter(r anomaly.Reporter) Options {
	return func(o *options) {
		o.reporter = r
	}
}

// Decode parses a vendor payload into records.
//
// Records which cannot be decoded, or which carry no id, are skipped and reported.
// Only a payload which is not a JSON array is an error.
func Decode(payload []byte, args ...Options) ([]Record, error) {
	opts := options{
		log:      slog.Default(),
		reporter: anomaly.Discard,
	}
	for _, opt := range args {
		opt(&opts)
	}

	items, err := rawItems(payload)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		r, err := decodeRecord(item)
		if err != nil {
			opts.log.Warn("Skipping undecodable record", "index", i, "error", err)
			opts.reporter.Report(anomaly.KindRecord, fmt.Sprintf("#%d", i))
			continue
		}
		if r.ID == "" {
			opts.log.Warn("Skipping record without id", "index", i)
			opts.reporter.Report(anomaly.KindRecord, fmt.Sprintf("#%d", i))
			continue
		}
		records = append(records, r)
	}

	return records, nil
}

// Keys returns the sorted union of top level keys of the objects in a payload.
// It is used to compare the shape of two payloads.
func Keys(payload []byte) ([]string, error) {
	items, err := rawItems(payload)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for k := range obj {
			keys[k] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(keys)), nil
}

func rawItems(payload []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, errors.Join(ErrNotList, err)
	}
	return items, nil
}

func decodeRecord(item json.RawMessage) (r Record, err error) {
	d := json.NewDecoder(bytes.NewReader(item))
	d.UseNumber()

	var data map[string]any
	if err := d.Decode(&data); err != nil {
		return r, fmt.Errorf("record is not a JSON object: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(getDecoderConfig(&r))
	if err != nil {
		return r, fmt.Errorf("failed to create decoder: %v", err)
	}
	if err := decoder.Decode(data); err != nil {
		return r, fmt.Errorf("record does not match expected structure: %w", err)
	}

	return r, nil
}

// getDecoderConfig accepts numbers where strings are expected, so that numeric ids and
// coordinates compare equal to their string form.
func getDecoderConfig(target any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	}
}
