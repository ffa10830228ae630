package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/models"
)

// DefaultCacheTTL is used when a call site does not override the TTL.
const DefaultCacheTTL = time.Hour

// CacheEntry pairs a provider record with its expiry instant. The expiry is
// enforced on read; the store itself never needs to understand TTL.
type CacheEntry struct {
	LocationKey string                `json:"location_key"`
	Provider    string                `json:"provider"`
	Record      models.ProviderRecord `json:"record"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

type cacheKey struct {
	location string
	provider string
}

// WeatherCache maps (location key, provider id) to a record with a TTL.
// Expired entries are invisible to Get but stay in the map until SweepExpired
// runs; Put overwrites unconditionally regardless of remaining TTL. A single
// RWMutex keeps every key linearizable while still letting concurrent
// aggregator tasks read in parallel.
type WeatherCache struct {
	mu         sync.RWMutex
	entries    map[cacheKey]CacheEntry
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewWeatherCache(defaultTTL time.Duration, logger *zap.Logger) *WeatherCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &WeatherCache{
		entries:    make(map[cacheKey]CacheEntry),
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns the record for (locationKey, provider) only while unexpired.
// Expired entries are treated as absent, not deleted here.
func (c *WeatherCache) Get(locationKey, provider string) (models.ProviderRecord, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey{locationKey, provider}]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.ExpiresAt) {
		return models.ProviderRecord{}, false
	}
	return entry.Record, true
}

// Put stores a record with the given TTL (<=0 means the default),
// overwriting any existing entry for the same key.
func (c *WeatherCache) Put(locationKey string, record models.ProviderRecord, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expires := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[cacheKey{locationKey, record.Provider}] = CacheEntry{
		LocationKey: locationKey,
		Provider:    record.Provider,
		Record:      record,
		ExpiresAt:   expires,
	}
	c.mu.Unlock()

	c.logger.Debug("Cached provider record",
		zap.String("location", locationKey),
		zap.String("provider", record.Provider),
		zap.Time("expires_at", expires))
}

// SweepExpired removes every entry whose expiry has passed and returns the
// number removed.
func (c *WeatherCache) SweepExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !entry.ExpiresAt.After(now) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
	return removed
}

// ClearAll drops every entry.
func (c *WeatherCache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]CacheEntry)
	c.mu.Unlock()

	c.logger.Info("Weather cache cleared")
}

// Len reports the number of entries including expired ones not yet swept.
func (c *WeatherCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
