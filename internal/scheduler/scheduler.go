package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"weathercompare/internal/geo"
	"weathercompare/internal/models"
	"weathercompare/internal/services"
)

// Scheduler runs the periodic maintenance jobs: sweeping expired cache
// entries and warming the cache for the configured locations.
type Scheduler struct {
	cron       *cron.Cron
	aggregator *services.Aggregator
	cache      *services.WeatherCache
	logger     *zap.Logger

	locations    []models.Location
	sweepSpec    string
	refreshSpec  string
	fetchTimeout time.Duration
}

func New(aggregator *services.Aggregator, cache *services.WeatherCache, sweepSpec, refreshSpec string, fetchTimeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		aggregator:   aggregator,
		cache:        cache,
		logger:       logger,
		sweepSpec:    sweepSpec,
		refreshSpec:  refreshSpec,
		fetchTimeout: fetchTimeout,
	}
}

// SetLocations parses "lat,lon" strings into refresh targets, skipping any
// that do not parse.
func (s *Scheduler) SetLocations(raw []string) {
	for _, entry := range raw {
		lat, lon, ok := geo.ParseCoordinates(entry)
		if !ok {
			s.logger.Warn("Skipping unparseable refresh location", zap.String("entry", entry))
			continue
		}
		loc, err := models.NewLocation("", lat, lon)
		if err != nil {
			s.logger.Warn("Skipping invalid refresh location", zap.String("entry", entry), zap.Error(err))
			continue
		}
		s.locations = append(s.locations, loc)
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSpec, s.sweep); err != nil {
		return err
	}
	if len(s.locations) > 0 {
		if _, err := s.cron.AddFunc(s.refreshSpec, s.refresh); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("sweep_spec", s.sweepSpec),
		zap.String("refresh_spec", s.refreshSpec),
		zap.Int("refresh_locations", len(s.locations)))
	return nil
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) sweep() {
	removed := s.cache.SweepExpired()
	s.logger.Debug("Cache sweep finished", zap.Int("removed", removed))
}

func (s *Scheduler) refresh() {
	for _, loc := range s.locations {
		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		if _, err := s.aggregator.FetchAll(ctx, loc); err != nil {
			s.logger.Warn("Background refresh failed",
				zap.String("location", loc.ID),
				zap.Error(err))
		}
		cancel()
	}
}
