// Package connector builds the platform outputs of one park from the vendor services.
//
// The same Connector serves every park: all park specific values come from its
// registry record.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
	"github.com/parkfeeds/parques-reunidos/internal/calendar"
	"github.com/parkfeeds/parques-reunidos/internal/catalog"
	"github.com/parkfeeds/parques-reunidos/internal/entity"
	"github.com/parkfeeds/parques-reunidos/internal/livestatus"
	"github.com/parkfeeds/parques-reunidos/internal/metrics"
	"github.com/parkfeeds/parques-reunidos/internal/models"
	"github.com/parkfeeds/parques-reunidos/internal/registry"
	"github.com/parkfeeds/parques-reunidos/internal/transport"
	"github.com/ubuntu/decorate"
)

const (
	attractionsPath = "/api/v1/service/attraction"
	restaurantsPath = "/api/v1/service/restaurant"
)

// Cache lifetimes of the vendor payloads.
const (
	CatalogTTL  = 24 * time.Hour
	LiveTTL     = time.Minute
	CalendarTTL = 24 * time.Hour
)

// Names of the platform outputs, used in logs and metrics.
const (
	OpDestination = "destination"
	OpParks       = "parks"
	OpAttractions = "attractions"
	OpRestaurants = "restaurants"
	OpShows       = "shows"
	OpLive        = "live"
	OpSchedule    = "schedule"
	OpSnapshot    = "snapshot"
)

// Connector builds the platform outputs of one park.
type Connector struct {
	park registry.Park
	loc  *time.Location

	fetcher transport.Fetcher
	log     *slog.Logger
	metrics *metrics.Park
}

type options struct {
	log     *slog.Logger
	fetcher transport.Fetcher
	cache   *transport.Cache
	metrics *metrics.Metrics
}

// Options represents an optional function to override Connector default values.
type Options func(*options)

// WithLogger sets the logger of the Connector.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithFetcher replaces the HTTP client built from the park record.
func WithFetcher(f transport.Fetcher) Options {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithCache sets the payload cache of the HTTP client built from the park record.
func WithCache(c *transport.Cache) Options {
	return func(o *options) {
		o.cache = c
	}
}

// WithMetrics records builds, fetches and anomalies in m.
func WithMetrics(m *metrics.Metrics) Options {
	return func(o *options) {
		o.metrics = m
	}
}

// New returns a Connector for park. The record is validated first: an invalid park is
// an error, never a half working connector.
func New(park registry.Park, args ...Options) (c *Connector, err error) {
	defer decorate.OnError(&err, "could not create connector for park %q", park.ID)

	opts := options{
		log: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	if err := park.Validate(); err != nil {
		return nil, err
	}
	loc, err := park.Location()
	if err != nil {
		return nil, err
	}

	log := opts.log.With("park", park.ID)
	var pm *metrics.Park
	if opts.metrics != nil {
		m := opts.metrics.Park(park.ID)
		pm = &m
	}

	fetcher := opts.fetcher
	if fetcher == nil {
		clientOpts := []transport.Options{transport.WithLogger(log), transport.WithCache(opts.cache)}
		if pm != nil {
			clientOpts = append(clientOpts, transport.WithMetrics(*pm))
		}
		if fetcher, err = transport.NewClient(transport.ClientConfig{
			BaseURL:       park.BaseURL,
			APIKey:        park.APIKey,
			Establishment: park.StayEstablishment,
		}, clientOpts...); err != nil {
			return nil, err
		}
	}

	return &Connector{
		park:    park,
		loc:     loc,
		fetcher: fetcher,
		log:     log,
		metrics: pm,
	}, nil
}

// Park returns the record the connector was built from.
func (c *Connector) Park() registry.Park {
	return c.park
}

// run is the state of one operation: its logger and its anomalies.
type run struct {
	id        string
	c         *Connector
	log       *slog.Logger
	anomalies *anomaly.Aggregator
}

func (c *Connector) newRun(op string) *run {
	var aggOpts []anomaly.Options
	if c.metrics != nil {
		aggOpts = append(aggOpts, anomaly.WithCounter(c.metrics.Anomalies))
	}

	id := uuid.NewString()
	return &run{
		id:        id,
		c:         c,
		log:       c.log.With("op", op, "run", id),
		anomalies: anomaly.NewAggregator(aggOpts...),
	}
}

// done logs the anomalies summary and records the outcome of op.
func (r *run) done(op string, err error) {
	r.anomalies.LogAll(r.log, r.c.park.Name)

	if err != nil {
		r.log.Debug("Operation failed", "err", err)
	}
	if r.c.metrics == nil {
		return
	}
	if err != nil {
		r.c.metrics.Builds.WithLabelValues(op, metrics.ResultError).Inc()
		return
	}
	r.c.metrics.Builds.WithLabelValues(op, metrics.ResultOK).Inc()
	r.c.metrics.LastSuccess.WithLabelValues(op).SetToCurrentTime()
}

func (r *run) mapper() *entity.Mapper {
	p := r.c.park
	return entity.New(entity.Config{
		Name:            p.Name,
		DestinationSlug: p.DestinationSlug,
		ParkSlug:        p.ParkSlug,
		Culture:         p.Culture,
		FallbackCulture: p.FallbackCulture,
		Timezone:        p.Timezone,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
	}, entity.WithLogger(r.log), entity.WithReporter(r.anomalies))
}

func (r *run) fetch(ctx context.Context, endpoint, url, key string, ttl time.Duration) ([]byte, error) {
	return r.c.fetcher.Fetch(ctx, transport.Request{
		Endpoint: endpoint,
		URL:      url,
		CacheKey: key,
		TTL:      ttl,
	})
}

func (r *run) apiURL(path string) string {
	return strings.TrimSuffix(r.c.park.BaseURL, "/") + path
}

func (r *run) decode(payload []byte) ([]catalog.Record, error) {
	return catalog.Decode(payload, catalog.WithLogger(r.log), catalog.WithReporter(r.anomalies))
}

func (r *run) attractionCatalog(ctx context.Context) ([]byte, []catalog.Record, error) {
	payload, err := r.fetch(ctx, OpAttractions, r.apiURL(attractionsPath), "attractions", CatalogTTL)
	if err != nil {
		return nil, nil, err
	}
	records, err := r.decode(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid attraction catalog: %w", err)
	}
	return payload, records, nil
}

func (r *run) attractions(ctx context.Context) ([]models.Entity, error) {
	_, records, err := r.attractionCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return r.mapper().Attractions(records), nil
}

func (r *run) restaurants(ctx context.Context) ([]models.Entity, error) {
	payload, err := r.fetch(ctx, OpRestaurants, r.apiURL(restaurantsPath), "restaurants", CatalogTTL)
	if err != nil {
		return nil, err
	}
	records, err := r.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid restaurant catalog: %w", err)
	}
	return r.mapper().Restaurants(records), nil
}

// live classifies the live feed. The feed and the catalog are served by the same
// endpoint under different cache lifetimes, so their shapes are compared on each run.
func (r *run) live(ctx context.Context) ([]models.LiveStatus, error) {
	catalogPayload, attractions, err := r.attractionCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return r.liveFrom(ctx, catalogPayload, attractions)
}

func (r *run) liveFrom(ctx context.Context, catalogPayload []byte, attractions []catalog.Record) ([]models.LiveStatus, error) {
	feedPayload, err := r.fetch(ctx, OpLive, r.apiURL(attractionsPath), "live", LiveTTL)
	if err != nil {
		return nil, err
	}
	r.checkShape(catalogPayload, feedPayload)

	feed, err := r.decode(feedPayload)
	if err != nil {
		// Already reported as a shape divergence.
		return []models.LiveStatus{}, nil
	}

	classifier := livestatus.New(livestatus.WithLogger(r.log), livestatus.WithReporter(r.anomalies))
	return classifier.Classify(attractions, feed), nil
}

func (r *run) checkShape(catalogPayload, feedPayload []byte) {
	catalogKeys, err := catalog.Keys(catalogPayload)
	if err != nil {
		return
	}
	feedKeys, err := catalog.Keys(feedPayload)
	if err != nil {
		r.log.Warn("Live feed is not a list, no status reported", "err", err)
		r.anomalies.Report(anomaly.KindFeedShape, "not a list")
		return
	}
	if slices.Equal(catalogKeys, feedKeys) {
		return
	}

	// Payloads without items have no keys to compare.
	if len(catalogKeys) == 0 || len(feedKeys) == 0 {
		return
	}

	missing, extra := diff(catalogKeys, feedKeys)
	r.log.Warn("Live feed and attraction catalog diverge", "missing", missing, "extra", extra)
	r.anomalies.Report(anomaly.KindFeedShape, fmt.Sprintf("missing %v, extra %v", missing, extra))
}

// diff returns the keys of want absent from got, and those of got absent from want.
func diff(want, got []string) (missing, extra []string) {
	for _, k := range want {
		if !slices.Contains(got, k) {
			missing = append(missing, k)
		}
	}
	for _, k := range got {
		if !slices.Contains(want, k) {
			extra = append(extra, k)
		}
	}
	return missing, extra
}

func (r *run) schedule(ctx context.Context) ([]models.ScheduleBundle, error) {
	page, err := r.fetch(ctx, OpSchedule, r.c.park.CalendarURL, "calendar", CalendarTTL)
	if err != nil {
		return nil, err
	}
	extractor := calendar.New(r.c.park.ParkSlug, r.c.loc, calendar.WithLogger(r.log), calendar.WithReporter(r.anomalies))
	return extractor.Extract(page), nil
}

// BuildDestinationEntity returns the destination entity.
func (c *Connector) BuildDestinationEntity(context.Context) (models.Entity, error) {
	r := c.newRun(OpDestination)
	defer r.done(OpDestination, nil)
	return r.mapper().Destination(), nil
}

// BuildParkEntities returns the park entity, as a list.
func (c *Connector) BuildParkEntities(context.Context) ([]models.Entity, error) {
	r := c.newRun(OpParks)
	defer r.done(OpParks, nil)
	return r.mapper().Parks(), nil
}

// BuildAttractionEntities returns the attractions of the vendor catalog.
func (c *Connector) BuildAttractionEntities(ctx context.Context) (e []models.Entity, err error) {
	r := c.newRun(OpAttractions)
	defer func() { r.done(OpAttractions, err) }()
	return r.attractions(ctx)
}

// BuildRestaurantEntities returns the restaurants of the vendor catalog.
func (c *Connector) BuildRestaurantEntities(ctx context.Context) (e []models.Entity, err error) {
	r := c.newRun(OpRestaurants)
	defer func() { r.done(OpRestaurants, err) }()
	return r.restaurants(ctx)
}

// BuildShowEntities returns the shows of the park. The vendor has none.
func (c *Connector) BuildShowEntities(context.Context) ([]models.Entity, error) {
	r := c.newRun(OpShows)
	defer r.done(OpShows, nil)
	return r.mapper().Shows(), nil
}

// BuildEntityLiveData returns the status of the attractions listed in the live feed.
func (c *Connector) BuildEntityLiveData(ctx context.Context) (s []models.LiveStatus, err error) {
	r := c.newRun(OpLive)
	defer func() { r.done(OpLive, err) }()
	return r.live(ctx)
}

// BuildEntityScheduleData returns the opening hours of the park for the current year.
func (c *Connector) BuildEntityScheduleData(ctx context.Context) (s []models.ScheduleBundle, err error) {
	r := c.newRun(OpSchedule)
	defer func() { r.done(OpSchedule, err) }()
	return r.schedule(ctx)
}
