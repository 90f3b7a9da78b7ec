// Package entity maps vendor catalog records to canonical entities.
//
// Entities form a tree: destination, park, then attractions and restaurants whose
// parent is the park.
package entity

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
	"github.com/parkfeeds/parques-reunidos/internal/catalog"
	"github.com/parkfeeds/parques-reunidos/internal/models"
)

// Config holds the park identity entities are attached to.
type Config struct {
	Name            string
	DestinationSlug string
	ParkSlug        string
	Culture         string
	FallbackCulture string
	Timezone        string
	Latitude        float64
	Longitude       float64
}

// Mapper builds the entities of one park.
type Mapper struct {
	cfg Config

	log      *slog.Logger
	reporter anomaly.Reporter
}

type options struct {
	log      *slog.Logger
	reporter anomaly.Reporter
}

// Options represents an optional function to override Mapper default values.
type Options func(*options)

// WithLogger sets the logger used for invalid coordinates.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithReporter sets where invalid coordinates are reported.
func WithReporter(r anomaly.Reporter) Options {
	return func(o *options) {
		o.reporter = r
	}
}

// New returns a Mapper for the park described by cfg.
func New(cfg Config, args ...Options) *Mapper {
	opts := options{
		log:      slog.Default(),
		reporter: anomaly.Discard,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Mapper{
		cfg:      cfg,
		log:      opts.log,
		reporter: opts.reporter,
	}
}

// Destination returns the destination entity, root of the tree.
func (m *Mapper) Destination() models.Entity {
	return models.Entity{
		ID:         m.cfg.DestinationSlug,
		Slug:       m.cfg.DestinationSlug,
		Name:       ptr(m.cfg.Name),
		EntityType: models.EntityTypeDestination,
		Timezone:   m.cfg.Timezone,
	}
}

// Parks returns the single park of the destination.
func (m *Mapper) Parks() []models.Entity {
	return []models.Entity{{
		ID:            m.cfg.ParkSlug,
		DestinationID: m.cfg.DestinationSlug,
		ParentID:      m.cfg.DestinationSlug,
		Name:          ptr(m.cfg.Name),
		EntityType:    models.EntityTypePark,
		Timezone:      m.cfg.Timezone,
		Location: &models.Location{
			Longitude: m.cfg.Longitude,
			Latitude:  m.cfg.Latitude,
		},
	}}
}

// Attractions returns one ride per record, named in the park culture when available.
func (m *Mapper) Attractions(records []catalog.Record) []models.Entity {
	entities := make([]models.Entity, 0, len(records))
	for _, r := range records {
		e := m.child(r, models.AttractionID(r.ID))
		e.EntityType = models.EntityTypeAttraction
		e.AttractionType = models.AttractionTypeRide
		if name, ok := ResolveName(r.TranslatableName, m.cfg.Culture); ok {
			e.Name = ptr(name)
		}
		entities = append(entities, e)
	}
	return entities
}

// Restaurants returns one restaurant per record. Names come from the park culture,
// then the fallback culture, and are null otherwise.
func (m *Mapper) Restaurants(records []catalog.Record) []models.Entity {
	entities := make([]models.Entity, 0, len(records))
	for _, r := range records {
		e := m.child(r, models.RestaurantID(r.ID))
		e.EntityType = models.EntityTypeRestaurant
		e.Name = nil
		if name, ok := ResolveName(r.TranslatableName, m.cfg.Culture, m.cfg.FallbackCulture); ok {
			e.Name = ptr(name)
		}
		entities = append(entities, e)
	}
	return entities
}

// Shows returns the show entities. The vendor has no show catalog.
func (m *Mapper) Shows() []models.Entity {
	return []models.Entity{}
}

// child returns the fields shared by every entity living in the park.
func (m *Mapper) child(r catalog.Record, id string) models.Entity {
	e := models.Entity{
		ID:            id,
		DestinationID: m.cfg.DestinationSlug,
		ParkID:        m.cfg.ParkSlug,
		ParentID:      m.cfg.ParkSlug,
		Timezone:      m.cfg.Timezone,
		Location:      m.location(id, r.Place.Point),
	}
	if strings.TrimSpace(r.Name) != "" {
		e.Name = ptr(r.Name)
	}
	return e
}

// location returns the coordinates of p, or nil unless both are present and numeric.
func (m *Mapper) location(id string, p catalog.Point) *models.Location {
	lon, lat := strings.TrimSpace(p.Longitude), strings.TrimSpace(p.Latitude)
	if lon == "" || lat == "" {
		return nil
	}

	longitude, errLon := parseCoordinate(lon)
	latitude, errLat := parseCoordinate(lat)
	if errLon != nil || errLat != nil {
		m.log.Warn("Ignoring non numeric coordinates", "id", id, "longitude", p.Longitude, "latitude", p.Latitude)
		m.reporter.Report(anomaly.KindLocation, id)
		return nil
	}

	return &models.Location{Longitude: longitude, Latitude: latitude}
}

func parseCoordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

func ptr(s string) *string {
	return &s
}
