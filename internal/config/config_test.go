package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-deviation-service/internal/domain"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"ORS_API_KEY": "test-key",
	}))
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.ORS.APIKey)
	assert.Equal(t, "https://api.openrouteservice.org", cfg.ORS.BaseURL)
	assert.Equal(t, "driving-car", cfg.ORS.Profile)
	assert.Equal(t, 10*time.Second, cfg.ORS.Timeout)
	assert.Equal(t, 1, cfg.ORS.MaxAttempts)
	assert.Equal(t, 50.0, cfg.Simulation.ThresholdMeters)
	assert.Equal(t, 0.0001, cfg.Simulation.PerturbationDegrees)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "itineraire.html", cfg.Output.HTMLPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadWithOverrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"ORS_PROFILE":                "foot-walking",
		"DEVIATION_THRESHOLD_METERS": "25.5",
		"PERTURBATION_DEGREES":       "0",
		"ROUTE_CACHE":                "redis",
		"ROUTE_CACHE_TTL":            "5m",
		"SIM_SEED":                   "42",
	}))
	require.NoError(t, err)

	assert.Equal(t, "foot-walking", cfg.ORS.Profile)
	assert.Equal(t, 25.5, cfg.Simulation.ThresholdMeters)
	assert.Equal(t, 0.0, cfg.Simulation.PerturbationDegrees)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadWithRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"zero threshold":       {"DEVIATION_THRESHOLD_METERS": "0"},
		"negative threshold":   {"DEVIATION_THRESHOLD_METERS": "-5"},
		"negative jitter":      {"PERTURBATION_DEGREES": "-0.1"},
		"unknown cache":        {"ROUTE_CACHE": "memcached"},
		"postgres without dsn": {"ROUTE_CACHE": "postgres"},
		"unparseable float":    {"DEVIATION_THRESHOLD_METERS": "fifty"},
		"zero attempts":        {"ORS_MAX_ATTEMPTS": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestGet(t *testing.T) {
	t.Setenv("NAVSIM_TEST_KEY", "value")
	assert.Equal(t, "value", Get("NAVSIM_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", Get("NAVSIM_TEST_MISSING", "fallback"))
}
