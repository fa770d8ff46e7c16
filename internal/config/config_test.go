package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carbontrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "Chennai", cfg.Environment.City)
	assert.Equal(t, 10*time.Second, cfg.Environment.Timeout)
	assert.Equal(t, config.StoreMemory, cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())

	// Development gets a random key.
	assert.True(t, cfg.Session.GeneratedKey)
	assert.Len(t, cfg.Session.SigningKey, 64)
}

func TestLoad_SharedAPIKey(t *testing.T) {
	cfg, err := config.LoadFrom(lookupFrom(map[string]string{
		"ENV_API_KEY": "shared",
	}))
	require.NoError(t, err)
	assert.Equal(t, "shared", cfg.Environment.OpenWeatherMapAPIKey)
	assert.Equal(t, "shared", cfg.Environment.WAQIToken)

	cfg, err = config.LoadFrom(lookupFrom(map[string]string{
		"ENV_API_KEY": "shared",
		"WAQI_TOKEN":  "own-token",
	}))
	require.NoError(t, err)
	assert.Equal(t, "shared", cfg.Environment.OpenWeatherMapAPIKey)
	assert.Equal(t, "own-token", cfg.Environment.WAQIToken)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	cfg, err := config.LoadFrom(lookupFrom(map[string]string{
		"APP_PORT":                "9090",
		"CITY":                    "Delhi",
		"SESSION_TTL":             "30m",
		"SESSION_STORE":           "Postgres",
		"SESSION_SIGNING_KEY":     "secret",
		"DB_PORT":                 "6543",
		"OTEL_ENABLED":            "true",
		"OTEL_TRACES_SAMPLER_ARG": "0.25",
		"REQUIRE_TLS":             "1",
		"LOG_LEVEL":               "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "Delhi", cfg.Environment.City)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, config.StorePostgres, cfg.Session.Store)
	assert.Equal(t, "secret", cfg.Session.SigningKey)
	assert.False(t, cfg.Session.GeneratedKey)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
	assert.True(t, cfg.Security.RequireTLS)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"SESSION_TTL": "soon"}},
		{"bad port", map[string]string{"DB_PORT": "five"}},
		{"bad bool", map[string]string{"OTEL_ENABLED": "maybe"}},
		{"unknown store", map[string]string{"SESSION_STORE": "redis"}},
		{"bad sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "half"}},
		{"sample ratio above one", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "2"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"negative ttl", map[string]string{"SESSION_TTL": "-1m"}},
		{"production without key", map[string]string{"APP_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFrom(lookupFrom(tt.env))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
app:
  port: "7070"
environment:
  city: Mumbai
  api_key: from-file
  timeout: 3s
session:
  ttl: 45m
database:
  host: db.internal
`)

	cfg, err := config.LoadFrom(lookupFrom(map[string]string{"CONFIG_FILE": path}))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, "Mumbai", cfg.Environment.City)
	assert.Equal(t, "from-file", cfg.Environment.OpenWeatherMapAPIKey)
	assert.Equal(t, 3*time.Second, cfg.Environment.Timeout)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "db.internal", cfg.Database.Host)

	// Keys the file leaves out keep their defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "development", cfg.App.Env)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := writeFile(t, "environment:\n  city: Mumbai\n")

	cfg, err := config.LoadFrom(lookupFrom(map[string]string{
		"CONFIG_FILE": path,
		"CITY":        "Kolkata",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Kolkata", cfg.Environment.City)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := config.LoadFrom(lookupFrom(map[string]string{"CONFIG_FILE": "/does/not/exist.yaml"}))
	assert.Error(t, err)

	path := writeFile(t, "environment:\n  town: Mumbai\n")
	_, err = config.LoadFrom(lookupFrom(map[string]string{"CONFIG_FILE": path}))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "")

	cfg, err := config.LoadFrom(lookupFrom(map[string]string{"CONFIG_FILE": path}))
	require.NoError(t, err)
	assert.Equal(t, "Chennai", cfg.Environment.City)
}
