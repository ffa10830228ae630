package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Condition is the canonical weather condition vocabulary. Every provider
// mapping terminates in exactly one of these; unmapped codes become
// ConditionUnknown, never an error.
type Condition string

const (
	ConditionClear         Condition = "clear"
	ConditionPartlyCloudy  Condition = "partly-cloudy"
	ConditionCloudy        Condition = "cloudy"
	ConditionOvercast      Condition = "overcast"
	ConditionRain          Condition = "rain"
	ConditionDrizzle       Condition = "drizzle"
	ConditionHeavyRain     Condition = "heavy-rain"
	ConditionFreezingRain  Condition = "freezing-rain"
	ConditionThunderstorm  Condition = "thunderstorm"
	ConditionSnow          Condition = "snow"
	ConditionLightSnow     Condition = "light-snow"
	ConditionHeavySnow     Condition = "heavy-snow"
	ConditionSleet         Condition = "sleet"
	ConditionFog           Condition = "fog"
	ConditionHaze          Condition = "haze"
	ConditionWind          Condition = "wind"
	ConditionDust          Condition = "dust"
	ConditionSmoke         Condition = "smoke"
	ConditionTornado       Condition = "tornado"
	ConditionHurricane     Condition = "hurricane"
	ConditionTropicalStorm Condition = "tropical-storm"
	ConditionUnknown       Condition = "unknown"
)

// CurrentConditions holds observed weather in canonical units: Celsius, m/s,
// hPa, meters. Optional measurements stay nil when a provider does not
// report them; they are never defaulted to zero.
type CurrentConditions struct {
	Temperature         float64   `json:"temperature_c"`
	ApparentTemperature float64   `json:"apparent_temperature_c"`
	Condition           Condition `json:"condition"`
	Description         string    `json:"description,omitempty"`
	Humidity            float64   `json:"humidity"` // 0..1
	Pressure            float64   `json:"pressure_hpa"`
	WindSpeed           float64   `json:"wind_speed_ms"`
	WindDirection       *float64  `json:"wind_direction_deg,omitempty"`
	UVIndex             *float64  `json:"uv_index,omitempty"`
	Visibility          *float64  `json:"visibility_m,omitempty"`
	CloudCover          *float64  `json:"cloud_cover,omitempty"` // 0..1
	DewPoint            *float64  `json:"dew_point_c,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// WindDirectionCardinal maps the wind direction onto the eight cardinal
// points, or "" when direction is unknown.
func (c CurrentConditions) WindDirectionCardinal() string {
	if c.WindDirection == nil {
		return ""
	}
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	idx := int((*c.WindDirection+22.5)/45.0) % 8
	return directions[idx]
}

type HourlyPoint struct {
	Timestamp           time.Time `json:"timestamp"`
	Temperature         float64   `json:"temperature_c"`
	ApparentTemperature *float64  `json:"apparent_temperature_c,omitempty"`
	Condition           Condition `json:"condition"`
	PrecipitationChance float64   `json:"precipitation_chance"` // 0..1
	PrecipitationAmount *float64  `json:"precipitation_mm,omitempty"`
	Humidity            *float64  `json:"humidity,omitempty"` // 0..1
	WindSpeed           *float64  `json:"wind_speed_ms,omitempty"`
	WindDirection       *float64  `json:"wind_direction_deg,omitempty"`
	UVIndex             *float64  `json:"uv_index,omitempty"`
	CloudCover          *float64  `json:"cloud_cover,omitempty"` // 0..1
}

type DailyPoint struct {
	Date                time.Time  `json:"date"`
	HighTemperature     float64    `json:"high_temperature_c"`
	LowTemperature      float64    `json:"low_temperature_c"`
	Condition           Condition  `json:"condition"`
	Description         string     `json:"description,omitempty"`
	PrecipitationChance float64    `json:"precipitation_chance"` // 0..1
	PrecipitationAmount *float64   `json:"precipitation_mm,omitempty"`
	Sunrise             *time.Time `json:"sunrise,omitempty"`
	Sunset              *time.Time `json:"sunset,omitempty"`
	MoonPhase           *float64   `json:"moon_phase,omitempty"` // 0=new, 0.5=full
	Humidity            *float64   `json:"humidity,omitempty"`   // 0..1
	WindSpeed           *float64   `json:"wind_speed_ms,omitempty"`
	UVIndex             *float64   `json:"uv_index,omitempty"`
}

// ProviderRecord is one provider's normalized answer for one location.
// Hourly and Daily are ordered ascending by time; gaps are allowed.
type ProviderRecord struct {
	Provider    string            `json:"provider"`
	Current     CurrentConditions `json:"current"`
	Hourly      []HourlyPoint     `json:"hourly"`
	Daily       []DailyPoint      `json:"daily"`
	Attribution string            `json:"attribution"`
}

// Canonical provider identifiers.
const (
	ProviderNWS            = "nws"
	ProviderOpenMeteo      = "openmeteo"
	ProviderOpenWeatherMap = "openweathermap"
	ProviderTomorrowIO     = "tomorrowio"
)

// ProviderPriority is the fixed order used to pick a primary source. It never
// depends on map iteration order, so the choice is identical across runs for
// the same success set.
var ProviderPriority = []string{
	ProviderNWS,
	ProviderOpenMeteo,
	ProviderOpenWeatherMap,
	ProviderTomorrowIO,
}

// WeatherSnapshot is the aggregated result of querying every applicable
// provider for one location. A provider id appears in at most one of
// Records and Failures.
type WeatherSnapshot struct {
	ID        string                    `json:"id"`
	Location  Location                  `json:"location"`
	Records   map[string]ProviderRecord `json:"records"`
	Failures  map[string]Failure        `json:"failures,omitempty"`
	FetchedAt time.Time                 `json:"fetched_at"`
}

// Failure is a non-fatal per-provider error kept on the snapshot so callers
// can surface it and offer a single-provider retry.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// NewSnapshot allocates an empty snapshot for a location.
func NewSnapshot(loc Location) WeatherSnapshot {
	return WeatherSnapshot{
		ID:        uuid.NewString(),
		Location:  loc,
		Records:   make(map[string]ProviderRecord),
		Failures:  make(map[string]Failure),
		FetchedAt: time.Now().UTC(),
	}
}

// Primary returns the preferred provider record by fixed priority over the
// success set. Providers that only appear in Failures are never selected.
// ok is false when no provider succeeded.
func (s WeatherSnapshot) Primary() (ProviderRecord, bool) {
	for _, id := range ProviderPriority {
		if rec, exists := s.Records[id]; exists {
			return rec, true
		}
	}
	// A provider outside the priority list still beats nothing; take the
	// lexicographically first so the choice stays deterministic.
	ids := s.AvailableProviders()
	if len(ids) == 0 {
		return ProviderRecord{}, false
	}
	return s.Records[ids[0]], true
}

// AvailableProviders lists the successful provider ids in a stable order.
func (s WeatherSnapshot) AvailableProviders() []string {
	ids := make([]string, 0, len(s.Records))
	for id := range s.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetRecord records a success, clearing any prior failure for the provider.
func (s *WeatherSnapshot) SetRecord(rec ProviderRecord) {
	s.Records[rec.Provider] = rec
	delete(s.Failures, rec.Provider)
}

// SetFailure records a failure unless the provider already succeeded.
func (s *WeatherSnapshot) SetFailure(provider string, kind FailureKind, msg string) {
	if _, ok := s.Records[provider]; ok {
		return
	}
	s.Failures[provider] = Failure{Kind: kind, Message: msg}
}
