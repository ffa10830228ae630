package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/models"
	"weathercompare/internal/services"
)

type noopProvider struct{}

func (noopProvider) Name() string { return models.ProviderOpenMeteo }

func (noopProvider) IsApplicable(models.Location) bool { return true }

func (noopProvider) Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error) {
	return models.ProviderRecord{Provider: models.ProviderOpenMeteo}, nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cache := services.NewWeatherCache(time.Hour, zap.NewNop())
	agg, err := services.NewAggregator([]services.Provider{noopProvider{}}, cache, nil, services.AggregatorOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New(agg, cache, "@every 10m", "@every 30m", 5*time.Second, zap.NewNop())
}

func TestSetLocations(t *testing.T) {
	s := newTestScheduler(t)
	s.SetLocations([]string{
		"37.7749,-122.4194",
		"garbage",
		"40.7128,-74.0060",
		"95,0", // out of range
	})

	if len(s.locations) != 2 {
		t.Fatalf("expected 2 parsed locations, got %d", len(s.locations))
	}
	if s.locations[0].ID != "37.7749,-122.4194" {
		t.Errorf("unexpected first location id %s", s.locations[0].ID)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t)
	s.SetLocations([]string{"37.7749,-122.4194"})

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}

func TestStartRejectsBadSpec(t *testing.T) {
	cache := services.NewWeatherCache(time.Hour, zap.NewNop())
	agg, err := services.NewAggregator([]services.Provider{noopProvider{}}, cache, nil, services.AggregatorOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := New(agg, cache, "not a cron spec", "@every 30m", 5*time.Second, zap.NewNop())
	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid sweep spec")
	}
}
