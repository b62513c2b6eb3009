package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"route-deviation-service/internal/domain"
)

// Cache backends accepted by ROUTE_CACHE.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheSqlite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

type Config struct {
	ORS        ORSConfig
	Simulation SimulationConfig
	Cache      CacheConfig
	Output     OutputConfig

	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`
}

type ORSConfig struct {
	APIKey         string        `env:"ORS_API_KEY"`
	BaseURL        string        `env:"ORS_BASE_URL, default=https://api.openrouteservice.org" validate:"url"`
	Profile        string        `env:"ORS_PROFILE, default=driving-car" validate:"required"`
	Timeout        time.Duration `env:"ORS_TIMEOUT, default=10s" validate:"gt=0"`
	MaxAttempts    int           `env:"ORS_MAX_ATTEMPTS, default=1" validate:"gte=1,lte=10"`
	GeocodeCountry string        `env:"ORS_GEOCODE_COUNTRY"`
}

type SimulationConfig struct {
	ThresholdMeters     float64 `env:"DEVIATION_THRESHOLD_METERS, default=50" validate:"gt=0"`
	PerturbationDegrees float64 `env:"PERTURBATION_DEGREES, default=0.0001" validate:"gte=0,lt=1"`
	Seed                int64   `env:"SIM_SEED, default=0"`
}

type CacheConfig struct {
	Backend     string        `env:"ROUTE_CACHE, default=none" validate:"oneof=none memory sqlite postgres redis"`
	DBPath      string        `env:"DB_PATH, default=data/routes.db"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisAddr   string        `env:"REDIS_ADDR, default=localhost:6379"`
	RedisDB     int           `env:"REDIS_DB, default=0"`
	TTL         time.Duration `env:"ROUTE_CACHE_TTL, default=24h" validate:"gte=0"`
}

type OutputConfig struct {
	HTMLPath        string `env:"OUTPUT_HTML, default=itineraire.html"`
	GPXPath         string `env:"OUTPUT_GPX"`
	MetricsTextfile string `env:"METRICS_TEXTFILE"`
}

// Load reads a .env file when present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w: %w", domain.ErrInvalidConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w: %w", domain.ErrInvalidConfiguration, err)
	}

	if c.Cache.Backend == CachePostgres && c.Cache.DatabaseURL == "" {
		return fmt.Errorf("validate config: %w: DATABASE_URL is required for ROUTE_CACHE=postgres", domain.ErrInvalidConfiguration)
	}

	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
