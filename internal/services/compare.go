package services

import (
	"fmt"
	"time"

	"weathercompare/internal/models"
)

// ComparisonWindow bounds the forward-looking window the analyzer considers.
const ComparisonWindow = 24 * time.Hour

// DataPoint is one (timestamp, value) sample in a per-provider series.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ComparisonData holds per-metric series keyed by provider id, in display
// units (°F, %, mph), plus the worst per-timestamp disagreement for each
// metric. The variance figures are max-minus-min spreads, not statistical
// variances: they answer "how far apart are the forecasts at their worst".
type ComparisonData struct {
	Temperatures  map[string][]DataPoint `json:"temperatures"`
	Precipitation map[string][]DataPoint `json:"precipitation"`
	Wind          map[string][]DataPoint `json:"wind"`
	Humidity      map[string][]DataPoint `json:"humidity"`

	TemperatureVariance     float64 `json:"temperature_variance"`
	PrecipitationDifference float64 `json:"precipitation_difference"`
	WindVariance            float64 `json:"wind_variance"`
}

// Compare computes cross-provider disagreement over the next 24 hours.
// It requires at least two successful providers. Timestamps only match
// exactly; providers whose hourly points fall on different instants simply
// contribute no comparable pair there (no interpolation).
func Compare(snapshot models.WeatherSnapshot) (ComparisonData, error) {
	return compareAt(snapshot, time.Now().UTC())
}

// compareAt is the clock-injected core, split out for tests.
func compareAt(snapshot models.WeatherSnapshot, now time.Time) (ComparisonData, error) {
	if len(snapshot.Records) < 2 {
		return ComparisonData{}, fmt.Errorf("comparison requires at least two successful providers, have %d", len(snapshot.Records))
	}

	end := now.Add(ComparisonWindow)
	data := ComparisonData{
		Temperatures:  make(map[string][]DataPoint),
		Precipitation: make(map[string][]DataPoint),
		Wind:          make(map[string][]DataPoint),
		Humidity:      make(map[string][]DataPoint),
	}

	for provider, rec := range snapshot.Records {
		for _, h := range rec.Hourly {
			// Strictly forward-looking: a point at exactly now is excluded.
			if !h.Timestamp.After(now) || h.Timestamp.After(end) {
				continue
			}

			data.Temperatures[provider] = append(data.Temperatures[provider], DataPoint{
				Timestamp: h.Timestamp,
				Value:     models.CelsiusToFahrenheit(h.Temperature),
			})
			data.Precipitation[provider] = append(data.Precipitation[provider], DataPoint{
				Timestamp: h.Timestamp,
				Value:     h.PrecipitationChance * 100,
			})
			if h.WindSpeed != nil {
				data.Wind[provider] = append(data.Wind[provider], DataPoint{
					Timestamp: h.Timestamp,
					Value:     models.MetersPerSecondToMph(*h.WindSpeed),
				})
			}
			if h.Humidity != nil {
				data.Humidity[provider] = append(data.Humidity[provider], DataPoint{
					Timestamp: h.Timestamp,
					Value:     *h.Humidity * 100,
				})
			}
		}
	}

	data.TemperatureVariance = maxSpread(data.Temperatures)
	data.PrecipitationDifference = maxSpread(data.Precipitation)
	data.WindVariance = maxSpread(data.Wind)

	return data, nil
}

// maxSpread buckets samples by exact timestamp, takes max-minus-min within
// each bucket covered by at least two distinct providers, and returns the
// largest spread over all buckets. Duplicate points from one provider never
// form a bucket on their own.
func maxSpread(series map[string][]DataPoint) float64 {
	type bucket struct {
		min, max  float64
		providers map[string]struct{}
	}
	buckets := make(map[time.Time]*bucket)

	for provider, points := range series {
		for _, p := range points {
			key := p.Timestamp
			b, ok := buckets[key]
			if !ok {
				b = &bucket{min: p.Value, max: p.Value, providers: make(map[string]struct{})}
				buckets[key] = b
			}
			if p.Value < b.min {
				b.min = p.Value
			}
			if p.Value > b.max {
				b.max = p.Value
			}
			b.providers[provider] = struct{}{}
		}
	}

	var worst float64
	for _, b := range buckets {
		if len(b.providers) < 2 {
			continue
		}
		if spread := b.max - b.min; spread > worst {
			worst = spread
		}
	}
	return worst
}
