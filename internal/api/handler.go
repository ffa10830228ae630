package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"weathercompare/internal/geo"
	"weathercompare/internal/models"
	"weathercompare/internal/services"
)

var validate = validator.New()

type Handler struct {
	aggregator   *services.Aggregator
	cache        *services.WeatherCache
	geocoder     geo.Geocoder
	logger       *zap.Logger
	fetchTimeout time.Duration
	startTime    time.Time
}

func NewHandler(aggregator *services.Aggregator, cache *services.WeatherCache, geocoder geo.Geocoder, fetchTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		aggregator:   aggregator,
		cache:        cache,
		geocoder:     geocoder,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		startTime:    time.Now(),
	}
}

// locationQuery accepts either a free-form q= (address or "lat,lon") or an
// explicit coordinate pair.
type locationQuery struct {
	Query     string  `validate:"required_without=Latitude"`
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
	hasCoords bool
}

func (h *Handler) resolveLocation(c *fiber.Ctx) (models.Location, error) {
	q := locationQuery{Query: c.Query("q")}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" || lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return models.Location{}, fiber.NewError(fiber.StatusBadRequest, "lat and lon must be decimal degrees")
		}
		q.Latitude, q.Longitude = lat, lon
		q.hasCoords = true
	}

	if !q.hasCoords && q.Query == "" {
		return models.Location{}, fiber.NewError(fiber.StatusBadRequest, "q or lat/lon query parameters are required")
	}
	if q.hasCoords {
		if err := validate.StructPartial(q, "Latitude", "Longitude"); err != nil {
			return models.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	if q.Query != "" {
		if h.geocoder == nil {
			if lat, lon, ok := geo.ParseCoordinates(q.Query); ok {
				q.Latitude, q.Longitude = lat, lon
			} else {
				return models.Location{}, fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured; pass lat and lon instead")
			}
		} else {
			loc, err := geo.Resolve(c.Context(), h.geocoder, q.Query)
			if err != nil {
				if errors.Is(err, geo.ErrNotFound) {
					return models.Location{}, fiber.NewError(fiber.StatusNotFound, "location not found")
				}
				return models.Location{}, err
			}
			return loc, nil
		}
	}

	// Coordinates can skip geocoding entirely; enrich with reverse-geocoded
	// metadata when a geocoder is configured so the fallback has a locality
	// to work with.
	if h.geocoder != nil {
		if loc, err := h.geocoder.ReverseGeocode(c.Context(), q.Latitude, q.Longitude); err == nil {
			return loc, nil
		}
	}
	loc, err := models.NewLocation("", q.Latitude, q.Longitude)
	if err != nil {
		return models.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return loc, nil
}

// GetWeather handles GET /api/v1/weather, the full fan-out.
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	loc, err := h.resolveLocation(c)
	if err != nil {
		return err
	}

	h.logger.Info("Fetching weather", zap.String("location", loc.ID), zap.String("name", loc.Name))

	ctx, cancel := contextWithTimeout(c, h.fetchTimeout)
	defer cancel()

	snapshot, err := h.aggregator.FetchAll(ctx, loc)
	if errors.Is(err, models.ErrNoProvidersSucceeded) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":    "no weather providers succeeded",
			"failures": snapshot.Failures,
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(snapshotResponse(snapshot))
}

// GetProviderWeather handles GET /api/v1/weather/:provider, a manual
// single-source refresh that leaves other providers' results untouched.
func (h *Handler) GetProviderWeather(c *fiber.Ctx) error {
	providerID := c.Params("provider")
	if err := validate.Var(providerID, "required,alphanum"); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid provider id")
	}

	loc, err := h.resolveLocation(c)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(c, h.fetchTimeout)
	defer cancel()

	rec, err := h.aggregator.FetchOne(ctx, providerID, loc)
	if err != nil {
		var pe *models.ProviderError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"provider": providerID,
				"kind":     pe.Kind,
				"error":    pe.Error(),
			})
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(rec)
}

// GetComparison handles GET /api/v1/compare, cross-provider disagreement
// over the next 24 hours.
func (h *Handler) GetComparison(c *fiber.Ctx) error {
	loc, err := h.resolveLocation(c)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(c, h.fetchTimeout)
	defer cancel()

	snapshot, err := h.aggregator.FetchAll(ctx, loc)
	if errors.Is(err, models.ErrNoProvidersSucceeded) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":    "no weather providers succeeded",
			"failures": snapshot.Failures,
		})
	}
	if err != nil {
		return err
	}

	comparison, err := services.Compare(snapshot)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     err.Error(),
			"providers": snapshot.AvailableProviders(),
		})
	}

	return c.JSON(fiber.Map{
		"location":   snapshot.Location,
		"comparison": comparison,
	})
}

// SweepCache handles POST /api/v1/cache/sweep.
func (h *Handler) SweepCache(c *fiber.Ctx) error {
	removed := h.cache.SweepExpired()
	return c.JSON(fiber.Map{"removed": removed})
}

// ClearCache handles DELETE /api/v1/cache.
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	h.cache.ClearAll()
	return c.SendStatus(fiber.StatusNoContent)
}

// GetHealth handles GET /api/v1/health.
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
		"providers": h.aggregator.Providers(),
		"stats":     h.aggregator.Stats(),
	})
}

func contextWithTimeout(c *fiber.Ctx, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), d)
}

// snapshotResponse decorates a snapshot with its primary provider so clients
// need not re-derive the priority order.
func snapshotResponse(snapshot models.WeatherSnapshot) fiber.Map {
	resp := fiber.Map{"snapshot": snapshot}
	if primary, ok := snapshot.Primary(); ok {
		resp["primary"] = primary.Provider
	}
	return resp
}
