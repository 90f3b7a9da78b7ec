// Package registry holds the configuration records of the supported parks.
//
// Every park served by the vendor is described by one Park record: the connector is
// the same for all of them. Built-in records can be completed or overridden, and new
// parks added, with a TOML file.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// DefaultBaseURL is the vendor API host.
const DefaultBaseURL = "https://api-manager.stay-app.com"

// DefaultFallbackCulture is the secondary locale used for restaurant names.
const DefaultFallbackCulture = "de"

// Park is the configuration record of one park.
type Park struct {
	ID                string  `toml:"id" yaml:"id" validate:"required"`
	Name              string  `toml:"name,omitempty" yaml:"name" validate:"required"`
	DestinationSlug   string  `toml:"destination_slug,omitempty" yaml:"destination_slug" validate:"required"`
	ParkSlug          string  `toml:"park_slug,omitempty" yaml:"park_slug" validate:"required,nefield=DestinationSlug"`
	Culture           string  `toml:"culture,omitempty" yaml:"culture" validate:"required,culture"`
	FallbackCulture   string  `toml:"fallback_culture,omitempty" yaml:"fallback_culture" validate:"omitempty,culture"`
	Timezone          string  `toml:"timezone,omitempty" yaml:"timezone" validate:"required,location"`
	Latitude          float64 `toml:"latitude,omitempty" yaml:"latitude" validate:"latitude"`
	Longitude         float64 `toml:"longitude,omitempty" yaml:"longitude" validate:"longitude"`
	CalendarURL       string  `toml:"calendar_url,omitempty" yaml:"calendar_url" validate:"required,url"`
	StayEstablishment string  `toml:"stay_establishment,omitempty" yaml:"stay_establishment" validate:"required"`
	BaseURL           string  `toml:"base_url,omitempty" yaml:"base_url" validate:"required,url"`
	APIKey            string  `toml:"api_key,omitempty" yaml:"-" validate:"required"`
}

// ErrInvalidPark is returned when a park record cannot be used to build a connector.
var ErrInvalidPark = errors.New("invalid park configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// A culture is a BCP 47 tag, as used by the vendor translatable names.
	if err := v.RegisterValidation("culture", func(fl validator.FieldLevel) bool {
		_, err := language.Parse(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("could not register culture validation: %v", err))
	}

	// A location must be a loadable IANA zone, other than the host Local zone.
	if err := v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || strings.EqualFold(name, "local") {
			return false
		}
		_, err := time.LoadLocation(name)
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("could not register location validation: %v", err))
	}

	return v
}

// Validate checks that the record holds everything a connector needs.
func (p Park) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Join(ErrInvalidPark, err)
		}

		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w %q: %s", ErrInvalidPark, p.ID, strings.Join(msgs, ", "))
	}
	return nil
}

// Location returns the park timezone.
func (p Park) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// overlay returns p with every non zero field of o applied.
func (p Park) overlay(o Park) Park {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}

	set(&p.Name, o.Name)
	set(&p.DestinationSlug, o.DestinationSlug)
	set(&p.ParkSlug, o.ParkSlug)
	set(&p.Culture, o.Culture)
	set(&p.FallbackCulture, o.FallbackCulture)
	set(&p.Timezone, o.Timezone)
	set(&p.CalendarURL, o.CalendarURL)
	set(&p.StayEstablishment, o.StayEstablishment)
	set(&p.BaseURL, o.BaseURL)
	set(&p.APIKey, o.APIKey)
	if o.Latitude != 0 {
		p.Latitude = o.Latitude
	}
	if o.Longitude != 0 {
		p.Longitude = o.Longitude
	}

	return p
}
