package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/airdistance/internal/distance/airport"
	"github.com/example/airdistance/internal/distance/service"
	"github.com/example/airdistance/pkg/events"
)

// MemoryProviderURL selects the built-in airport data set instead of HTTP.
const MemoryProviderURL = "memory"

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	RedisAddr        string
	PlacesBaseURL    string
	PlacesTimeout    time.Duration
	CacheTTL         time.Duration
	CacheReadFailure service.CacheReadFailurePolicy
	NATSURL          string
	NATSSubject      string
	EventsQueueSize  int
	EventsRetryMax   int
	RateRPS          float64
	RateBurst        float64
	LogLevel         string

	GatewayAddr        string
	DistanceServiceURL string
	JWTSecret          string
}

// Load reads and validates the environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:           os.Getenv("GRPC_ADDR"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		PlacesBaseURL:      getenv("PLACES_BASE_URL", airport.DefaultBaseURL),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        getenv("NATS_SUBJECT", events.DefaultSubject),
		LogLevel:           strings.ToLower(getenv("LOG_LEVEL", "info")),
		GatewayAddr:        getenv("GATEWAY_ADDR", ":8088"),
		DistanceServiceURL: getenv("DISTANCE_SERVICE_URL", "http://localhost:8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
	}
	if _, set := os.LookupEnv("GRPC_ADDR"); !set {
		cfg.GRPCAddr = ":9090"
	}

	var err error
	if cfg.PlacesTimeout, err = durationEnv("PLACES_TIMEOUT_MS", 5000, time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL_SEC", 3600, time.Second); err != nil {
		return nil, err
	}
	if cfg.EventsQueueSize, err = intEnv("EVENTS_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.EventsRetryMax, err = intEnv("EVENTS_RETRY_MAX", 3); err != nil {
		return nil, err
	}
	if cfg.RateRPS, err = floatEnv("RATE_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = floatEnv("RATE_BURST", 40); err != nil {
		return nil, err
	}

	switch strings.ToLower(getenv("CACHE_READ_FAILURE", "fail")) {
	case "fail":
		cfg.CacheReadFailure = service.CacheReadFailFast
	case "miss":
		cfg.CacheReadFailure = service.CacheReadAsMiss
	default:
		return nil, &ConfigError{Field: "CACHE_READ_FAILURE", Message: `must be "fail" or "miss"`}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ConfigError{Field: "LOG_LEVEL", Message: "must be one of debug, info, warn, error"}
	}

	return cfg, nil
}

// UseMemoryProvider reports whether airports come from the built-in data set.
func (c *Config) UseMemoryProvider() bool {
	return strings.EqualFold(c.PlacesBaseURL, MemoryProviderURL)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback int, unit time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * unit, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return 0, &ConfigError{Field: key, Message: "must be a positive integer"}
	}
	return time.Duration(parsed) * unit, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return 0, &ConfigError{Field: key, Message: "must be a positive integer"}
	}
	return parsed, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < 0 {
		return 0, &ConfigError{Field: key, Message: "must be a non-negative number"}
	}
	return parsed, nil
}
