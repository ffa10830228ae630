// Package geo wraps the external geocoding collaborator: free-form address
// lookup, reverse lookup, and the "lat,lon" short-circuit.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"weathercompare/internal/models"
)

// ErrNotFound is returned when the geocoder cannot resolve a query.
var ErrNotFound = errors.New("location not found")

// Geocoder resolves addresses and coordinates to Locations.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error)
}

// GoogleGeocoder implements Geocoder on the Google Geocoding API via
// kelvins/geocoder.
type GoogleGeocoder struct {
	logger *zap.Logger
}

func NewGoogleGeocoder(apiKey string, logger *zap.Logger) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{logger: logger}
}

// Geocode resolves a free-form address string to a Location.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	if strings.TrimSpace(address) == "" {
		return models.Location{}, ErrNotFound
	}

	coords, err := geocoder.Geocoding(geocoder.Address{City: address})
	if err != nil {
		g.logger.Warn("Geocoding failed", zap.String("address", address), zap.Error(err))
		return models.Location{}, fmt.Errorf("geocode %q: %w", address, ErrNotFound)
	}

	// Reverse the resolved coordinates to recover structured metadata
	// (country, region, locality) the forward call does not return.
	loc, err := g.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return models.NewLocation(address, coords.Latitude, coords.Longitude)
	}
	return loc, nil
}

// ReverseGeocode resolves coordinates to a Location with address metadata.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error) {
	loc, err := models.NewLocation("", lat, lon)
	if err != nil {
		return models.Location{}, err
	}

	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil || len(addresses) == 0 {
		g.logger.Warn("Reverse geocoding failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return models.Location{}, fmt.Errorf("reverse geocode %.4f,%.4f: %w", lat, lon, ErrNotFound)
	}

	addr := addresses[0]
	name := joinNonEmpty(addr.City, addr.State, addr.Country)
	if name == "" {
		name = loc.Name
	}

	loc.Name = name
	loc.Country = addr.Country
	loc.CountryCode = countryCode(addr.Country)
	loc.Region = addr.State
	loc.Locality = addr.City
	return loc, nil
}

// ParseCoordinates recognizes "lat,lon" strings. It returns false for
// anything else, including coordinates out of range.
func ParseCoordinates(s string) (lat, lon float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// Resolve turns a user query into a Location, short-circuiting coordinate
// strings to reverse geocoding.
func Resolve(ctx context.Context, g Geocoder, query string) (models.Location, error) {
	if lat, lon, ok := ParseCoordinates(query); ok {
		return g.ReverseGeocode(ctx, lat, lon)
	}
	return g.Geocode(ctx, query)
}

func joinNonEmpty(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// countryCode maps the geocoder's country names onto ISO alpha-2 codes for
// the few countries coverage predicates care about.
func countryCode(country string) string {
	switch strings.ToLower(country) {
	case "united states", "united states of america", "usa":
		return "US"
	case "canada":
		return "CA"
	case "mexico":
		return "MX"
	case "united kingdom":
		return "GB"
	default:
		return ""
	}
}
