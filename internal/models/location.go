package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCoordinate = errors.New("coordinate out of range")

// Location is an immutable place the engine can fetch weather for.
// The ID is derived from the rounded coordinates rather than generated
// randomly, so repeated lookups of the same place hit the same cache entries.
type Location struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone,omitempty"` // IANA name, e.g. "America/Los_Angeles"
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	Region      string  `json:"region,omitempty"`       // state / province
	Locality    string  `json:"locality,omitempty"`     // city
}

// NewLocation validates the coordinates and derives the stable ID.
func NewLocation(name string, lat, lon float64) (Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinate, lat, lon)
	}
	if name == "" {
		name = fmt.Sprintf("%.4f, %.4f", lat, lon)
	}
	return Location{
		ID:        LocationKey(lat, lon),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// LocationKey rounds coordinates to 4 decimal places (~11m) and formats them
// as a canonical cache key.
func LocationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// IsUS reports whether the location is in a US territory. Unknown country
// codes count as US so that coverage-limited providers get a chance when
// geocoding metadata is missing.
func (l Location) IsUS() bool {
	if l.CountryCode == "" {
		return true
	}
	return strings.EqualFold(l.CountryCode, "US")
}
