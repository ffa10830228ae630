package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	Providers struct {
		OpenWeatherAPIKey string
		TomorrowAPIKey    string
		GeocoderAPIKey    string
	}

	Fetch struct {
		AdapterTimeout   time.Duration // per adapter call
		AggregateTimeout time.Duration // whole FetchAll
	}

	Cache struct {
		TTL       time.Duration
		SweepSpec string // cron expression for the expiry sweep
	}

	Retry struct {
		MaxRetries int
		Delay      time.Duration
		Multiplier float64
	}

	CircuitBreaker struct {
		Timeout time.Duration
	}

	// RefreshLocations are warmed in the background, formatted
	// "lat,lon;lat,lon".
	Refresh struct {
		Locations []string
		Spec      string // cron expression
	}
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("WRITE_TIMEOUT", "60s"))

	cfg.Providers.OpenWeatherAPIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.Providers.TomorrowAPIKey = getEnv("TOMORROW_API_KEY", "")
	cfg.Providers.GeocoderAPIKey = getEnv("GEOCODER_API_KEY", "")

	cfg.Fetch.AdapterTimeout = parseDuration(getEnv("ADAPTER_TIMEOUT", "30s"))
	cfg.Fetch.AggregateTimeout = parseDuration(getEnv("AGGREGATE_TIMEOUT", "45s"))

	cfg.Cache.TTL = parseDuration(getEnv("CACHE_TTL", "1h"))
	cfg.Cache.SweepSpec = getEnv("CACHE_SWEEP_SPEC", "@every 10m")

	cfg.Retry.MaxRetries = parseInt(getEnv("MAX_RETRIES", "3"))
	cfg.Retry.Delay = parseDuration(getEnv("RETRY_DELAY", "500ms"))
	cfg.Retry.Multiplier = parseFloat(getEnv("RETRY_MULTIPLIER", "2"))

	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "2m"))

	if raw := getEnv("REFRESH_LOCATIONS", ""); raw != "" {
		cfg.Refresh.Locations = strings.Split(raw, ";")
	}
	cfg.Refresh.Spec = getEnv("REFRESH_SPEC", "@every 30m")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseFloat(value string) float64 {
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		zap.L().Warn("Failed to parse float", zap.String("value", value), zap.Error(err))
		return 0
	}
	return floatValue
}
