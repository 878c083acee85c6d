package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Environment (development, production)
	Environment string `yaml:"environment"`

	// Server listening address
	ListenAddr string `yaml:"listen_addr"`

	// Base URL for log output and the plugin listing
	BaseURL string `yaml:"base_url"`

	// CORS allowed origins
	CORSOrigins []string `yaml:"cors_origins"`

	// Enable debug logging
	Debug bool `yaml:"debug"`

	// Ceilings for the dynamic endpoints
	Limits LimitsConfig `yaml:"limits"`

	// Per-origin rate limiting; RequestsPerSecond <= 0 disables it
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Enable exchange inspection sessions and the WebSocket feed
	InspectEnabled bool `yaml:"inspect"`
}

// LimitsConfig caps requested quantities. All ceilings are inclusive.
type LimitsConfig struct {
	MaxDelaySeconds int   `yaml:"max_delay_seconds"`
	MaxBytes        int64 `yaml:"max_bytes"`
	MaxChars        int64 `yaml:"max_chars"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// RateLimitConfig configures the token bucket kept per origin
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

const (
	defaultMaxDelaySeconds = 60
	defaultMaxBytes        = 100 * 1024 * 1024
	defaultMaxChars        = 10 * 1024 * 1024
	defaultMaxBodyBytes    = 1024 * 1024

	// requestGrace is added to the delay ceiling for server timeouts so a
	// maximal delay can still be answered.
	requestGrace = 15 * time.Second
)

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		ListenAddr:  ":8080",
		BaseURL:     "http://localhost:8080",
		CORSOrigins: []string{"*"},
		Limits: LimitsConfig{
			MaxDelaySeconds: defaultMaxDelaySeconds,
			MaxBytes:        defaultMaxBytes,
			MaxChars:        defaultMaxChars,
			MaxBodyBytes:    defaultMaxBodyBytes,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             20,
		},
		InspectEnabled: true,
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// named by MIRROR_CONFIG_FILE, and environment variables, in that order.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("MIRROR_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("MIRROR_ENV", c.Environment)
	c.ListenAddr = getEnv("MIRROR_LISTEN_ADDR", c.ListenAddr)
	c.BaseURL = getEnv("MIRROR_BASE_URL", c.BaseURL)
	c.CORSOrigins = getEnvList("MIRROR_CORS_ORIGINS", c.CORSOrigins)
	c.Debug = getEnvBool("MIRROR_DEBUG", c.Debug)
	c.InspectEnabled = getEnvBool("MIRROR_INSPECT", c.InspectEnabled)

	var err error
	if c.Limits.MaxDelaySeconds, err = getEnvInt("MIRROR_MAX_DELAY_SECONDS", c.Limits.MaxDelaySeconds); err != nil {
		return err
	}
	if c.Limits.MaxBytes, err = getEnvInt64("MIRROR_MAX_BYTES", c.Limits.MaxBytes); err != nil {
		return err
	}
	if c.Limits.MaxChars, err = getEnvInt64("MIRROR_MAX_CHARS", c.Limits.MaxChars); err != nil {
		return err
	}
	if c.Limits.MaxBodyBytes, err = getEnvInt64("MIRROR_MAX_BODY_BYTES", c.Limits.MaxBodyBytes); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond, err = getEnvFloat("MIRROR_RATE_LIMIT", c.RateLimit.RequestsPerSecond); err != nil {
		return err
	}
	if c.RateLimit.Burst, err = getEnvInt("MIRROR_RATE_BURST", c.RateLimit.Burst); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations that cannot serve any request
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if c.Limits.MaxDelaySeconds <= 0 {
		errs = append(errs, fmt.Errorf("max delay must be positive, got %d", c.Limits.MaxDelaySeconds))
	}
	if c.Limits.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("max bytes must be positive, got %d", c.Limits.MaxBytes))
	}
	if c.Limits.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("max chars must be positive, got %d", c.Limits.MaxChars))
	}
	if c.Limits.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max body bytes must be positive, got %d", c.Limits.MaxBodyBytes))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// RequestTimeout bounds a single request: the delay ceiling plus a grace
// period for reading the request and writing the response.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Limits.MaxDelaySeconds)*time.Second + requestGrace
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
