// Package config loads runtime settings from environment variables.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Invalid configuration")
//	}
//
// Every variable has a default except the optional token and Redis URL, so an
// empty environment yields a working anonymous client without caching.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/diegoralt/Artify/pkg/client"
	"github.com/diegoralt/Artify/pkg/fanout"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// Config holds all runtime configuration.
type Config struct {
	// Catalog API
	APIBaseURL        string `env:"ARTIFY_API_BASE_URL" envDefault:"https://api.discogs.com"`
	DiscogsToken      string `env:"ARTIFY_DISCOGS_TOKEN"`
	UserAgent         string `env:"ARTIFY_USER_AGENT" envDefault:"Artify/1.0"`
	RequestsPerMinute int    `env:"ARTIFY_REQUESTS_PER_MINUTE" envDefault:"60"`
	MaxRetries        int    `env:"ARTIFY_MAX_RETRIES" envDefault:"3"`

	// Optional Redis for revalidation cache and shared quota state
	RedisURL string `env:"ARTIFY_REDIS_URL"`

	// Aggregation
	PageSize          int           `env:"ARTIFY_PAGE_SIZE" envDefault:"30"`
	Debounce          time.Duration `env:"ARTIFY_DEBOUNCE" envDefault:"400ms"`
	FanoutConcurrency int           `env:"ARTIFY_FANOUT_CONCURRENCY" envDefault:"10"`
	FanoutTimeout     time.Duration `env:"ARTIFY_FANOUT_TIMEOUT" envDefault:"15s"`

	// Logging
	LogLevel  string `env:"ARTIFY_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"ARTIFY_LOG_PRETTY" envDefault:"false"`

	// HTTP front
	Port string `env:"PORT" envDefault:"8080"`
}

// Load parses the process environment into a Config and validates it.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges the env tags cannot express.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.APIBaseURL) == "":
		return fmt.Errorf("config: ARTIFY_API_BASE_URL must not be empty")
	case strings.TrimSpace(c.UserAgent) == "":
		return fmt.Errorf("config: ARTIFY_USER_AGENT must not be empty")
	case c.PageSize < 1 || c.PageSize > 100:
		return fmt.Errorf("config: ARTIFY_PAGE_SIZE must be between 1 and 100 (got %d)", c.PageSize)
	case c.Debounce < 0:
		return fmt.Errorf("config: ARTIFY_DEBOUNCE must not be negative (got %s)", c.Debounce)
	case c.FanoutConcurrency < 1:
		return fmt.Errorf("config: ARTIFY_FANOUT_CONCURRENCY must be >= 1 (got %d)", c.FanoutConcurrency)
	case c.FanoutTimeout <= 0:
		return fmt.Errorf("config: ARTIFY_FANOUT_TIMEOUT must be > 0 (got %s)", c.FanoutTimeout)
	case c.RequestsPerMinute < 1:
		return fmt.Errorf("config: ARTIFY_REQUESTS_PER_MINUTE must be >= 1 (got %d)", c.RequestsPerMinute)
	case c.MaxRetries < 1:
		return fmt.Errorf("config: ARTIFY_MAX_RETRIES must be >= 1 (got %d)", c.MaxRetries)
	}
	return nil
}

// RedisClient opens a client for RedisURL, or returns nil when it is unset.
func (c *Config) RedisClient() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("config: parse ARTIFY_REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ClientConfig maps the settings onto the catalog client configuration.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.UserAgent)
	cfg.BaseURL = c.APIBaseURL
	cfg.Token = c.DiscogsToken
	cfg.RequestsPerMinute = c.RequestsPerMinute
	cfg.MaxRetries = c.MaxRetries
	return cfg
}

// FanoutConfig maps the settings onto the enricher configuration.
func (c *Config) FanoutConfig() fanout.Config {
	return fanout.Config{
		MaxConcurrency: c.FanoutConcurrency,
		Timeout:        c.FanoutTimeout,
	}
}

// LoggingConfig maps the settings onto the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
