package services

import (
	"testing"
	"time"

	"weathercompare/internal/models"
)

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

func snapshotWithHourly(t *testing.T, records map[string][]models.HourlyPoint) models.WeatherSnapshot {
	t.Helper()
	loc, err := models.NewLocation("Test", 40.0, -75.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot := models.NewSnapshot(loc)
	for provider, hourly := range records {
		snapshot.SetRecord(models.ProviderRecord{Provider: provider, Hourly: hourly})
	}
	return snapshot
}

func TestCompareRequiresTwoProviders(t *testing.T) {
	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: nil,
	})
	if _, err := Compare(snapshot); err == nil {
		t.Fatal("expected error with a single provider")
	}
}

func TestCompareTemperatureSpreadInFahrenheit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(2 * time.Hour)

	// One provider says 70°F, the other 75°F at the same instant: the spread
	// is 5 in display units.
	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: ts, Temperature: fahrenheitToCelsius(70)},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: ts, Temperature: fahrenheitToCelsius(75)},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := data.TemperatureVariance - 5; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected temperature variance 5°F, got %v", data.TemperatureVariance)
	}
}

func TestCompareWindowFiltering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inWindow := now.Add(6 * time.Hour)
	past := now.Add(-1 * time.Hour)
	beyond := now.Add(25 * time.Hour)

	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: past, Temperature: 0},
			{Timestamp: inWindow, Temperature: 10},
			{Timestamp: beyond, Temperature: 50},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: past, Temperature: 40},
			{Timestamp: inWindow, Temperature: 11},
			{Timestamp: beyond, Temperature: -10},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the in-window pair (10°C vs 11°C = 1.8°F spread) may count; the
	// larger out-of-window disagreements are excluded.
	if data.TemperatureVariance > 2 {
		t.Errorf("expected only in-window points to count, variance = %v", data.TemperatureVariance)
	}
	if len(data.Temperatures[models.ProviderNWS]) != 1 {
		t.Errorf("expected 1 in-window point, got %d", len(data.Temperatures[models.ProviderNWS]))
	}
}

func TestCompareWindowExcludesCurrentInstant(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// One pair sits exactly at now, one safely inside the window. Only the
	// inside pair may contribute; the window is strictly forward-looking.
	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: now, Temperature: 0},
			{Timestamp: now.Add(time.Hour), Temperature: 10},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: now, Temperature: 40},
			{Timestamp: now.Add(time.Hour), Temperature: 11},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Temperatures[models.ProviderNWS]) != 1 {
		t.Errorf("expected the point at now excluded, got %d points", len(data.Temperatures[models.ProviderNWS]))
	}
	// 10°C vs 11°C is a 1.8°F spread; the 40°C disagreement at now must not
	// leak in.
	if data.TemperatureVariance > 2 {
		t.Errorf("expected only strictly-future points to count, variance = %v", data.TemperatureVariance)
	}
}

func TestCompareSpreadNeedsDistinctProviders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(time.Hour)

	// One provider emitting two samples at the same instant must not count
	// as cross-provider disagreement.
	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: ts, Temperature: 0},
			{Timestamp: ts, Temperature: 30},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: now.Add(2 * time.Hour), Temperature: 10},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TemperatureVariance != 0 {
		t.Errorf("expected zero variance for a single-provider bucket, got %v", data.TemperatureVariance)
	}
}

func TestCompareNoInterpolation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Providers report on offset instants; no timestamp has two samples, so
	// every spread is zero.
	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: now.Add(time.Hour), Temperature: 0},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: now.Add(90 * time.Minute), Temperature: 30},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TemperatureVariance != 0 {
		t.Errorf("expected zero variance without aligned timestamps, got %v", data.TemperatureVariance)
	}
}

func TestCompareOptionalMetrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(time.Hour)

	wind1, wind2 := 5.0, 10.0
	humidity := 0.8

	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: ts, Temperature: 10, WindSpeed: &wind1, Humidity: &humidity},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: ts, Temperature: 10, WindSpeed: &wind2},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 m/s spread is ~11.18 mph.
	if data.WindVariance < 11 || data.WindVariance > 11.5 {
		t.Errorf("expected wind variance ~11.18 mph, got %v", data.WindVariance)
	}

	// Humidity series only exists where reported; one provider is fine.
	if len(data.Humidity[models.ProviderNWS]) != 1 {
		t.Errorf("expected 1 humidity point for nws, got %d", len(data.Humidity[models.ProviderNWS]))
	}
	if len(data.Humidity[models.ProviderOpenMeteo]) != 0 {
		t.Errorf("expected no humidity points for openmeteo, got %d", len(data.Humidity[models.ProviderOpenMeteo]))
	}
}

func TestComparePrecipitationSpread(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(time.Hour)

	snapshot := snapshotWithHourly(t, map[string][]models.HourlyPoint{
		models.ProviderNWS: {
			{Timestamp: ts, Temperature: 10, PrecipitationChance: 0.2},
		},
		models.ProviderOpenMeteo: {
			{Timestamp: ts, Temperature: 10, PrecipitationChance: 0.7},
		},
	})

	data, err := compareAt(snapshot, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := data.PrecipitationDifference - 50; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected precipitation difference 50 points, got %v", data.PrecipitationDifference)
	}
}
