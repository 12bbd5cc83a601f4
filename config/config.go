// Package config loads the swview application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when a parsed Config fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidLogOutput is returned for a LOG_OUTPUT other than stdout or stderr.
	ErrInvalidLogOutput = errors.New("invalid log output")
)

var dotenvLoaded sync.Once

// Config holds every setting the application reads from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`

	Log   Log   `envPrefix:"LOG_"`
	SWAPI SWAPI `envPrefix:"SWAPI_"`
	OTel  OTel  `envPrefix:"OTEL_"`

	// EffectWorkers bounds the pool that runs asynchronous effects.
	EffectWorkers int `env:"EFFECT_WORKERS" envDefault:"4"`

	// TablePath optionally replaces the built-in transition table with a YAML file.
	TablePath string `env:"TABLE_PATH"`

	// MetricsAddr enables a Prometheus listener when set, e.g. ":9090".
	MetricsAddr string `env:"METRICS_ADDR"`
}

type Log struct {
	JSON   bool       `env:"JSON"   envDefault:"false"`
	Level  slog.Level `env:"LEVEL"  envDefault:"INFO"`
	Output string     `env:"OUTPUT" envDefault:"stderr"`
}

type SWAPI struct {
	BaseURL  string        `env:"BASE_URL"  envDefault:"https://swapi.dev/api"`
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"10s"`
	MaxPages int           `env:"MAX_PAGES" envDefault:"1"`
	DNSCache bool          `env:"DNS_CACHE" envDefault:"true"`
}

type OTel struct {
	Enabled        bool          `env:"ENABLED"                     envDefault:"false"`
	ServiceName    string        `env:"SERVICE_NAME"                envDefault:"swview"`
	ServiceVersion string        `env:"SERVICE_VERSION"             envDefault:"1.0.0"`
	Endpoint       string        `env:"EXPORTER_OTLP_ENDPOINT"`
	Timeout        time.Duration `env:"EXPORTER_OTLP_TIMEOUT"       envDefault:"5s"`
}

// Load reads a .env file from the working directory, if any, and parses the
// process environment into a Config.
func Load() (*Config, error) {
	dotenvLoaded.Do(func() {
		// A missing .env file is not an error.
		_ = godotenv.Load()
	})

	return parse(env.Options{})
}

// LoadFile loads the given dotenv files into the process environment before
// parsing. Variables already set in the environment win.
func LoadFile(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	return parse(env.Options{})
}

// FromMap parses a Config from vars alone, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}

	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that parse cleanly but cannot be used.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Output(); err != nil {
		errs = append(errs, err)
	}

	u, err := url.Parse(c.SWAPI.BaseURL)
	if err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("SWAPI_BASE_URL %q must be an absolute URL", c.SWAPI.BaseURL))
	}

	if c.SWAPI.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_TIMEOUT must be positive, got %s", c.SWAPI.Timeout))
	}

	if c.SWAPI.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("SWAPI_MAX_PAGES must be at least 1, got %d", c.SWAPI.MaxPages))
	}

	if c.EffectWorkers < 1 {
		errs = append(errs, fmt.Errorf("EFFECT_WORKERS must be at least 1, got %d", c.EffectWorkers))
	}

	if c.OTel.Enabled && c.OTel.Endpoint == "" {
		errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// Output returns the writer named by LOG_OUTPUT.
func (c *Config) Output() (io.Writer, error) {
	switch strings.ToLower(c.Log.Output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, c.Log.Output)
	}
}

// IsLocal reports whether the application runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Environment == "" || c.Environment == "local"
}
