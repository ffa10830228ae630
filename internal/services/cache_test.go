package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/models"
)

func newTestCache(ttl time.Duration) (*WeatherCache, *time.Time) {
	cache := NewWeatherCache(ttl, zap.NewNop())
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestCacheGetPut(t *testing.T) {
	cache, _ := newTestCache(time.Hour)

	rec := models.ProviderRecord{Provider: models.ProviderOpenMeteo}
	cache.Put("37.7749,-122.4194", rec, 0)

	got, ok := cache.Get("37.7749,-122.4194", models.ProviderOpenMeteo)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Provider != models.ProviderOpenMeteo {
		t.Errorf("expected openmeteo record, got %s", got.Provider)
	}

	if _, ok := cache.Get("37.7749,-122.4194", models.ProviderNWS); ok {
		t.Error("expected miss for a different provider at the same location")
	}
	if _, ok := cache.Get("40.7128,-74.0060", models.ProviderOpenMeteo); ok {
		t.Error("expected miss for a different location")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache, now := newTestCache(time.Hour)

	cache.Put("key", models.ProviderRecord{Provider: models.ProviderNWS}, time.Hour)

	*now = now.Add(time.Hour - time.Second)
	if _, ok := cache.Get("key", models.ProviderNWS); !ok {
		t.Error("expected hit just before expiry")
	}

	*now = now.Add(2 * time.Second)
	if _, ok := cache.Get("key", models.ProviderNWS); ok {
		t.Error("expected miss just after expiry")
	}

	// Expired entries stay until swept.
	if cache.Len() != 1 {
		t.Errorf("expected entry retained after expiry, len = %d", cache.Len())
	}
}

func TestCacheOverwriteResetsExpiry(t *testing.T) {
	cache, now := newTestCache(time.Hour)

	cache.Put("key", models.ProviderRecord{Provider: models.ProviderNWS}, time.Hour)
	*now = now.Add(50 * time.Minute)
	cache.Put("key", models.ProviderRecord{Provider: models.ProviderNWS}, time.Hour)

	*now = now.Add(30 * time.Minute)
	if _, ok := cache.Get("key", models.ProviderNWS); !ok {
		t.Error("expected hit; overwrite should have reset the expiry")
	}
	if cache.Len() != 1 {
		t.Errorf("expected one entry after overwrite, got %d", cache.Len())
	}
}

func TestCacheSweepExpired(t *testing.T) {
	cache, now := newTestCache(time.Hour)

	cache.Put("a", models.ProviderRecord{Provider: models.ProviderNWS}, time.Minute)
	cache.Put("b", models.ProviderRecord{Provider: models.ProviderNWS}, time.Hour)

	*now = now.Add(30 * time.Minute)
	if removed := cache.SweepExpired(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", cache.Len())
	}
	if _, ok := cache.Get("b", models.ProviderNWS); !ok {
		t.Error("expected live entry to survive the sweep")
	}
}

func TestCacheClearAll(t *testing.T) {
	cache, _ := newTestCache(time.Hour)

	cache.Put("a", models.ProviderRecord{Provider: models.ProviderNWS}, 0)
	cache.Put("b", models.ProviderRecord{Provider: models.ProviderOpenMeteo}, 0)

	cache.ClearAll()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	cache := NewWeatherCache(0, zap.NewNop())
	if cache.defaultTTL != DefaultCacheTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultCacheTTL, cache.defaultTTL)
	}
}
