package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"weathercompare/internal/api"
	"weathercompare/internal/config"
	"weathercompare/internal/geo"
	"weathercompare/internal/scheduler"
	"weathercompare/internal/services"
	"weathercompare/pkg/client"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Comparison Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	clientCfg := client.ClientConfig{
		Timeout:        cfg.Fetch.AdapterTimeout,
		MaxRetries:     cfg.Retry.MaxRetries,
		RetryDelay:     cfg.Retry.Delay,
		Multiplier:     cfg.Retry.Multiplier,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}

	providers := buildProviders(cfg, clientCfg, logger)

	var geocoder geo.Geocoder
	if cfg.Providers.GeocoderAPIKey != "" {
		geocoder = geo.NewGoogleGeocoder(cfg.Providers.GeocoderAPIKey, logger)
	} else {
		logger.Warn("No geocoder API key configured; address lookup and the broader-location fallback are disabled")
	}

	cache := services.NewWeatherCache(cfg.Cache.TTL, logger)

	aggregator, err := services.NewAggregator(providers, cache, geocoder, services.AggregatorOptions{
		CacheTTL:       cfg.Cache.TTL,
		AdapterTimeout: cfg.Fetch.AdapterTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize aggregator", zap.Error(err))
	}

	// Initialize scheduler
	sched := scheduler.New(aggregator, cache, cfg.Cache.SweepSpec, cfg.Refresh.Spec, cfg.Fetch.AggregateTimeout, logger)
	sched.SetLocations(cfg.Refresh.Locations)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: errorHandler,
	})

	// Setup handlers and routes
	handler := api.NewHandler(aggregator, cache, geocoder, cfg.Fetch.AggregateTimeout, logger)
	api.SetupRoutes(app, handler, logger)

	// Start scheduler
	if err := sched.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// buildProviders registers the keyless providers unconditionally and the
// keyed ones only when a key is present, so a missing key degrades the set
// instead of failing startup.
func buildProviders(cfg *config.Config, clientCfg client.ClientConfig, logger *zap.Logger) []services.Provider {
	providers := []services.Provider{
		client.NewNWSClient(clientCfg, logger),
		client.NewOpenMeteoClient(clientCfg, logger),
	}

	if cfg.Providers.OpenWeatherAPIKey != "" {
		providers = append(providers, client.NewOpenWeatherClient(cfg.Providers.OpenWeatherAPIKey, clientCfg, logger))
	} else {
		logger.Warn("OPENWEATHER_API_KEY not set; OpenWeatherMap provider disabled")
	}

	if cfg.Providers.TomorrowAPIKey != "" {
		providers = append(providers, client.NewTomorrowIOClient(cfg.Providers.TomorrowAPIKey, clientCfg, logger))
	} else {
		logger.Warn("TOMORROW_API_KEY not set; Tomorrow.io provider disabled")
	}

	return providers
}

func errorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}
