// Package models defines the canonical documents emitted to the aggregation platform.
package models

// EntityType is the kind of a canonical entity.
type EntityType string

const (
	// EntityTypeDestination is the root of an entity tree.
	EntityTypeDestination EntityType = "DESTINATION"
	// EntityTypePark is a park inside a destination.
	EntityTypePark EntityType = "PARK"
	// EntityTypeAttraction is a ride or other attraction inside a park.
	EntityTypeAttraction EntityType = "ATTRACTION"
	// EntityTypeRestaurant is a dining location inside a park.
	EntityTypeRestaurant EntityType = "RESTAURANT"
	// EntityTypeShow is a scheduled show inside a park.
	EntityTypeShow EntityType = "SHOW"
)

// AttractionType refines an attraction entity.
type AttractionType string

// AttractionTypeRide is the only attraction type the vendor exposes.
const AttractionTypeRide AttractionType = "RIDE"

const (
	attractionPrefix = "attr_"
	restaurantPrefix = "dining_"
)

// AttractionID returns the entity id of the vendor attraction id.
func AttractionID(vendorID string) string {
	return attractionPrefix + vendorID
}

// RestaurantID returns the entity id of the vendor restaurant id.
func RestaurantID(vendorID string) string {
	return restaurantPrefix + vendorID
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// Entity is a canonical point of interest.
//
// Every entity other than a destination has a non-empty ParentID.
type Entity struct {
	ID             string         `json:"_id" yaml:"_id"`
	DestinationID  string         `json:"_destinationId,omitempty" yaml:"_destinationId,omitempty"`
	ParkID         string         `json:"_parkId,omitempty" yaml:"_parkId,omitempty"`
	ParentID       string         `json:"_parentId,omitempty" yaml:"_parentId,omitempty"`
	Slug           string         `json:"slug,omitempty" yaml:"slug,omitempty"`
	Name           *string        `json:"name" yaml:"name"`
	EntityType     EntityType     `json:"entityType" yaml:"entityType"`
	AttractionType AttractionType `json:"attractionType,omitempty" yaml:"attractionType,omitempty"`
	Timezone       string         `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Location       *Location      `json:"location,omitempty" yaml:"location,omitempty"`
}

// DisplayName returns the entity name, or "" when it has none.
func (e Entity) DisplayName() string {
	if e.Name == nil {
		return ""
	}
	return *e.Name
}

// Status is the operational state of an entity.
type Status string

const (
	// StatusOperating means the entity is open.
	StatusOperating Status = "OPERATING"
	// StatusDown means the entity is temporarily closed.
	StatusDown Status = "DOWN"
	// StatusClosed means the entity is closed for the day.
	StatusClosed Status = "CLOSED"
)

// LiveStatus is the live state of one entity.
type LiveStatus struct {
	ID     string `json:"_id" yaml:"_id"`
	Status Status `json:"status" yaml:"status"`
}

// ScheduleType qualifies a schedule entry.
type ScheduleType string

// ScheduleTypeOperating is a regular opening window.
const ScheduleTypeOperating ScheduleType = "OPERATING"

// ScheduleEntry is one opening window for one local date.
//
// OpeningTime and ClosingTime are RFC 3339 timestamps with the park offset.
type ScheduleEntry struct {
	Date        string       `json:"date" yaml:"date"`
	OpeningTime string       `json:"openingTime" yaml:"openingTime"`
	ClosingTime string       `json:"closingTime" yaml:"closingTime"`
	Type        ScheduleType `json:"type" yaml:"type"`
}

// ScheduleBundle groups the schedule of one entity.
type ScheduleBundle struct {
	ID       string          `json:"_id" yaml:"_id"`
	Schedule []ScheduleEntry `json:"schedule" yaml:"schedule"`
}
