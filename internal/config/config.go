// Package config loads service configuration from the environment,
// optionally layered over a YAML file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/carbontrack/carbontrack/internal/database"
)

// Session store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// EnvProduction is the APP_ENV value for production deployments.
const EnvProduction = "production"

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the complete service configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Environment EnvironmentConfig `yaml:"environment"`
	Session     SessionConfig     `yaml:"session"`
	Database    database.Config   `yaml:"database"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Security    SecurityConfig    `yaml:"security"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

// EnvironmentConfig holds the weather and air quality provider settings.
type EnvironmentConfig struct {
	City string `yaml:"city"`

	// SharedAPIKey is used for any provider without its own key.
	SharedAPIKey string `yaml:"api_key"`

	OpenWeatherMapAPIKey  string `yaml:"openweathermap_api_key"`
	OpenWeatherMapBaseURL string `yaml:"openweathermap_base_url"`
	WAQIToken             string `yaml:"waqi_token"`
	WAQIBaseURL           string `yaml:"waqi_base_url"`

	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig holds tracker session settings.
type SessionConfig struct {
	SigningKey    string        `yaml:"signing_key"`
	TTL           time.Duration `yaml:"ttl"`
	Store         string        `yaml:"store"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// GeneratedKey is set when no signing key was configured and a random
	// one was generated for this process.
	GeneratedKey bool `yaml:"-"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// SecurityConfig holds transport security settings.
type SecurityConfig struct {
	RequireTLS bool `yaml:"require_tls"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		App: AppConfig{
			Port:     "8080",
			Env:      "development",
			LogLevel: "info",
		},
		Environment: EnvironmentConfig{
			City:    "Chennai",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			Store:         StoreMemory,
			SweepInterval: 5 * time.Minute,
		},
		Database: database.DefaultConfig(),
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE if any, and the process environment, in that order.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom environment lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values; unknown keys are rejected.
func mergeFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file decodes to io.EOF.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("APP_PORT", &cfg.App.Port)
	env.str("APP_ENV", &cfg.App.Env)
	env.str("LOG_LEVEL", &cfg.App.LogLevel)

	env.str("CITY", &cfg.Environment.City)
	env.str("ENV_API_KEY", &cfg.Environment.SharedAPIKey)
	env.str("OWM_API_KEY", &cfg.Environment.OpenWeatherMapAPIKey)
	env.str("OWM_BASE_URL", &cfg.Environment.OpenWeatherMapBaseURL)
	env.str("WAQI_TOKEN", &cfg.Environment.WAQIToken)
	env.str("WAQI_BASE_URL", &cfg.Environment.WAQIBaseURL)
	env.duration("ENV_FETCH_TIMEOUT", &cfg.Environment.Timeout)

	env.str("SESSION_SIGNING_KEY", &cfg.Session.SigningKey)
	env.duration("SESSION_TTL", &cfg.Session.TTL)
	env.str("SESSION_STORE", &cfg.Session.Store)
	env.duration("SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)

	env.str("DB_HOST", &cfg.Database.Host)
	env.integer("DB_PORT", &cfg.Database.Port)
	env.str("DB_USER", &cfg.Database.User)
	env.str("DB_PASSWORD", &cfg.Database.Password)
	env.str("DB_NAME", &cfg.Database.Database)
	env.str("DB_SSL_MODE", &cfg.Database.SSLMode)
	env.integer("DB_MAX_CONNS", &cfg.Database.MaxConns)
	env.integer("DB_MIN_CONNS", &cfg.Database.MinConns)
	env.duration("DB_MAX_CONN_LIFETIME", &cfg.Database.MaxConnLifetime)

	env.boolean("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	env.float("OTEL_TRACES_SAMPLER_ARG", &cfg.Telemetry.SampleRatio)

	env.boolean("REQUIRE_TLS", &cfg.Security.RequireTLS)

	return env.err()
}

// finalize fills values derived from other settings.
func (c *Config) finalize() error {
	if c.Environment.OpenWeatherMapAPIKey == "" {
		c.Environment.OpenWeatherMapAPIKey = c.Environment.SharedAPIKey
	}
	if c.Environment.WAQIToken == "" {
		c.Environment.WAQIToken = c.Environment.SharedAPIKey
	}

	if c.Session.SigningKey == "" && c.App.Env != EnvProduction {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("generating session signing key: %w", err)
		}
		c.Session.SigningKey = hex.EncodeToString(key)
		c.Session.GeneratedKey = true
	}

	c.Session.Store = strings.ToLower(c.Session.Store)
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.App.Port == "" {
		errs = append(errs, errors.New("app port is required"))
	}
	if _, err := zerolog.ParseLevel(c.App.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.App.LogLevel, err))
	}
	if strings.TrimSpace(c.Environment.City) == "" {
		errs = append(errs, errors.New("city is required"))
	}
	if c.Environment.Timeout <= 0 {
		errs = append(errs, errors.New("environment fetch timeout must be positive"))
	}
	if c.Session.SigningKey == "" {
		errs = append(errs, errors.New("session signing key is required in production"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session sweep interval must be positive"))
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry sample ratio must be between 0 and 1"))
	}

	switch c.Session.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.MaxConns <= 0 || c.Database.MaxConns > 1000 {
			errs = append(errs, errors.New("database max conns must be between 1 and 1000"))
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, errors.New("database min conns must be between 0 and max conns"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Session.Store))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LogLevel returns the parsed log level, info if unparseable.
func (c Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.App.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// envReader applies environment overrides and collects parse errors.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(e.errs...))
}
