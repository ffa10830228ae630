package geo

import (
	"context"
	"testing"

	"weathercompare/internal/models"
)

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		input    string
		lat, lon float64
		ok       bool
	}{
		{"37.7749,-122.4194", 37.7749, -122.4194, true},
		{" 51.5074 , -0.1278 ", 51.5074, -0.1278, true},
		{"90,-180", 90, -180, true},
		{"0,0", 0, 0, true},
		{"91,0", 0, 0, false},
		{"-91,0", 0, 0, false},
		{"0,181", 0, 0, false},
		{"San Francisco", 0, 0, false},
		{"37.7749", 0, 0, false},
		{"37.7749,-122.4194,10", 0, 0, false},
		{"abc,def", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		lat, lon, ok := ParseCoordinates(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseCoordinates(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && (lat != tt.lat || lon != tt.lon) {
			t.Errorf("ParseCoordinates(%q) = %v,%v, want %v,%v", tt.input, lat, lon, tt.lat, tt.lon)
		}
	}
}

// stubGeocoder records which method Resolve dispatched to.
type stubGeocoder struct {
	geocoded string
	reversed bool
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	s.geocoded = address
	return models.NewLocation(address, 40.0, -75.0)
}

func (s *stubGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error) {
	s.reversed = true
	return models.NewLocation("", lat, lon)
}

func TestResolveDispatch(t *testing.T) {
	g := &stubGeocoder{}

	loc, err := Resolve(context.Background(), g, "37.7749,-122.4194")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.reversed {
		t.Error("expected coordinate query to reverse geocode")
	}
	if loc.Latitude != 37.7749 {
		t.Errorf("expected latitude 37.7749, got %v", loc.Latitude)
	}

	g = &stubGeocoder{}
	if _, err := Resolve(context.Background(), g, "Portland, OR"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.geocoded != "Portland, OR" {
		t.Errorf("expected address query forwarded to Geocode, got %q", g.geocoded)
	}
	if g.reversed {
		t.Error("address query must not reverse geocode")
	}
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		country string
		want    string
	}{
		{"United States", "US"},
		{"united states of america", "US"},
		{"USA", "US"},
		{"Canada", "CA"},
		{"United Kingdom", "GB"},
		{"France", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := countryCode(tt.country); got != tt.want {
			t.Errorf("countryCode(%q) = %q, want %q", tt.country, got, tt.want)
		}
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := joinNonEmpty("San Francisco", "", "United States"); got != "San Francisco, United States" {
		t.Errorf("unexpected join result: %q", got)
	}
	if got := joinNonEmpty("", "", ""); got != "" {
		t.Errorf("expected empty join, got %q", got)
	}
}
