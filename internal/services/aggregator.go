package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"weathercompare/internal/geo"
	"weathercompare/internal/models"
)

// Provider is the contract every weather source adapter implements. Each
// adapter owns its request sequence, parsing, normalization, and truncation;
// the aggregator only sees normalized records or typed failures.
type Provider interface {
	Name() string
	IsApplicable(loc models.Location) bool
	Fetch(ctx context.Context, loc models.Location) (models.ProviderRecord, error)
}

// Aggregator fans a location out to every applicable provider concurrently,
// collects successes and failures independently, and retries once against a
// broader geocoded location when nothing succeeds.
type Aggregator struct {
	providers      []Provider
	cache          *WeatherCache
	geocoder       geo.Geocoder
	logger         *zap.Logger
	cacheTTL       time.Duration
	adapterTimeout time.Duration

	mu           sync.RWMutex
	snapshot     *models.WeatherSnapshot
	lastFetch    time.Time
	successCount int
	failureCount int
}

// AggregatorOptions carries the tunables injected at construction; no
// ambient globals are consulted afterwards.
type AggregatorOptions struct {
	CacheTTL       time.Duration
	AdapterTimeout time.Duration
}

func NewAggregator(providers []Provider, cache *WeatherCache, geocoder geo.Geocoder, opts AggregatorOptions, logger *zap.Logger) (*Aggregator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no weather providers configured")
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 30 * time.Second
	}
	return &Aggregator{
		providers:      providers,
		cache:          cache,
		geocoder:       geocoder,
		logger:         logger,
		cacheTTL:       opts.CacheTTL,
		adapterTimeout: opts.AdapterTimeout,
	}, nil
}

// FetchAll queries every applicable provider for the location and merges the
// outcomes into a snapshot. Partial results are valid output; only an empty
// success map after the fallback round is an error (ErrNoProvidersSucceeded).
// The caller's ctx bounds total wall time; a timeout resolves with whatever
// was already recorded.
func (a *Aggregator) FetchAll(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error) {
	a.mu.Lock()
	a.lastFetch = time.Now()
	a.mu.Unlock()

	snapshot := a.fetchRound(ctx, loc)

	// Exactly one fallback round: only when nothing succeeded and the
	// location carries a locality name to broaden to.
	if len(snapshot.Records) == 0 && loc.Locality != "" && a.geocoder != nil {
		a.logger.Info("All providers failed, retrying with broader location",
			zap.String("location", loc.ID),
			zap.String("locality", loc.Locality))

		broader, err := a.geocoder.Geocode(ctx, loc.Locality)
		if err != nil {
			a.logger.Warn("Fallback geocoding failed",
				zap.String("locality", loc.Locality),
				zap.Error(err))
		} else if broader.ID != loc.ID {
			snapshot = a.fetchRound(ctx, broader)
		}
	}

	a.mu.Lock()
	a.snapshot = &snapshot
	a.successCount += len(snapshot.Records)
	a.failureCount += len(snapshot.Failures)
	a.mu.Unlock()

	if len(snapshot.Records) == 0 {
		return snapshot, models.ErrNoProvidersSucceeded
	}
	return snapshot, nil
}

// providerOutcome is the tagged union each fan-out task reports, so the join
// never needs panics or sentinel records to distinguish results.
type providerOutcome struct {
	provider string
	record   models.ProviderRecord
	err      error
}

// fetchRound runs one cache-then-network round against the applicable
// provider subset and waits for every task (no early cancellation: one
// provider's failure never preempts another's success).
func (a *Aggregator) fetchRound(ctx context.Context, loc models.Location) models.WeatherSnapshot {
	applicable := make([]Provider, 0, len(a.providers))
	for _, p := range a.providers {
		if p.IsApplicable(loc) {
			applicable = append(applicable, p)
		} else {
			a.logger.Debug("Provider not applicable for location",
				zap.String("provider", p.Name()),
				zap.String("location", loc.ID))
		}
	}

	var wg sync.WaitGroup
	outcomes := make(chan providerOutcome, len(applicable))
	start := time.Now()

	for _, p := range applicable {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			rec, err := a.fetchProvider(ctx, p, loc)
			outcomes <- providerOutcome{provider: p.Name(), record: rec, err: err}
		}(p)
	}

	wg.Wait()
	close(outcomes)

	snapshot := models.NewSnapshot(loc)
	for outcome := range outcomes {
		if outcome.err != nil {
			kind := models.ClassifyError(outcome.err)
			snapshot.SetFailure(outcome.provider, kind, outcome.err.Error())
			a.logger.Warn("Provider fetch failed",
				zap.String("provider", outcome.provider),
				zap.String("location", loc.ID),
				zap.String("kind", string(kind)),
				zap.Error(outcome.err))
			continue
		}
		snapshot.SetRecord(outcome.record)
	}

	a.logger.Info("Fetch round completed",
		zap.String("location", loc.ID),
		zap.Int("providers", len(applicable)),
		zap.Int("successes", len(snapshot.Records)),
		zap.Int("failures", len(snapshot.Failures)),
		zap.Duration("duration", time.Since(start)))

	return snapshot
}

// fetchProvider serves one provider from cache when possible, otherwise
// calls the adapter under its own bounded timeout and writes the cache on
// success.
func (a *Aggregator) fetchProvider(ctx context.Context, p Provider, loc models.Location) (models.ProviderRecord, error) {
	if rec, ok := a.cache.Get(loc.ID, p.Name()); ok {
		a.logger.Debug("Cache hit",
			zap.String("provider", p.Name()),
			zap.String("location", loc.ID))
		return rec, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.adapterTimeout)
	defer cancel()

	rec, err := p.Fetch(fetchCtx, loc)
	if err != nil {
		return models.ProviderRecord{}, err
	}

	a.cache.Put(loc.ID, rec, a.cacheTTL)
	return rec, nil
}

// FetchOne calls a single adapter unconditionally, bypassing the fan-out and
// the cache read; used for a manual single-source refresh. The stored
// snapshot is patched in place: only this provider's entry changes, any
// prior failure for it is cleared, and every other provider is untouched.
func (a *Aggregator) FetchOne(ctx context.Context, providerID string, loc models.Location) (models.ProviderRecord, error) {
	var provider Provider
	for _, p := range a.providers {
		if p.Name() == providerID {
			provider = p
			break
		}
	}
	if provider == nil {
		return models.ProviderRecord{}, fmt.Errorf("unknown provider %q", providerID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.adapterTimeout)
	defer cancel()

	rec, err := provider.Fetch(fetchCtx, loc)
	if err != nil {
		return models.ProviderRecord{}, err
	}

	a.cache.Put(loc.ID, rec, a.cacheTTL)

	a.mu.Lock()
	if a.snapshot != nil && a.snapshot.Location.ID == loc.ID {
		a.snapshot.SetRecord(rec)
	}
	a.mu.Unlock()

	return rec, nil
}

// Snapshot returns a copy of the most recent snapshot, if any.
func (a *Aggregator) Snapshot() (models.WeatherSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.snapshot == nil {
		return models.WeatherSnapshot{}, false
	}
	return *a.snapshot, true
}

// Providers lists the configured provider ids in registration order.
func (a *Aggregator) Providers() []string {
	ids := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		ids = append(ids, p.Name())
	}
	return ids
}

// Stats reports aggregate counters for the health endpoint.
func (a *Aggregator) Stats() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]interface{}{
		"last_fetch_time": a.lastFetch,
		"success_count":   a.successCount,
		"failure_count":   a.failureCount,
		"providers":       len(a.providers),
		"cache_entries":   a.cache.Len(),
	}
}
