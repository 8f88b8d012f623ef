package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"market-sync/src/helpers"
	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, read after the YAML file (and an optional .env next to it).
const (
	EnvDBConnectionString = "MARKETSYNC_DB_CONNECTION_STRING"
	EnvRedisPassword      = "MARKETSYNC_REDIS_PASSWORD"
	EnvRestURL            = "MARKETSYNC_REST_URL"
	EnvPushURL            = "MARKETSYNC_PUSH_URL"
)

const (
	defaultSeriesCapacity    = 100
	defaultReconnectDelay    = 1
	defaultMaxReconnectDelay = 30
	defaultPingSeconds       = 15
)

var defaultIntervals = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Secrets from .env / environment
	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
	}
	config.applyEnv()
	config.applyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBConnectionString); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv(EnvRestURL); v != "" {
		c.Backend.RestURL = v
	}
	if v := os.Getenv(EnvPushURL); v != "" {
		c.Backend.PushURL = v
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Backend.SeriesCapacity == 0 {
		c.Backend.SeriesCapacity = defaultSeriesCapacity
	}
	if c.Backend.ReconnectDelaySeconds == 0 {
		c.Backend.ReconnectDelaySeconds = defaultReconnectDelay
	}
	if c.Backend.MaxReconnectDelaySeconds == 0 {
		c.Backend.MaxReconnectDelaySeconds = defaultMaxReconnectDelay
	}
	if c.Backend.PingSeconds == 0 {
		c.Backend.PingSeconds = defaultPingSeconds
	}
	if len(c.View.Intervals) == 0 {
		c.View.Intervals = append([]string(nil), defaultIntervals...)
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis storage")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Backend configuration
	if !strings.HasPrefix(c.Backend.RestURL, "http://") && !strings.HasPrefix(c.Backend.RestURL, "https://") {
		return fmt.Errorf("backend rest_url must be an http(s) URL, got %q", c.Backend.RestURL)
	}
	if !strings.HasPrefix(c.Backend.PushURL, "ws://") && !strings.HasPrefix(c.Backend.PushURL, "wss://") {
		return fmt.Errorf("backend push_url must be a ws(s) URL, got %q", c.Backend.PushURL)
	}
	if c.Backend.SeriesCapacity <= 0 {
		return fmt.Errorf("series capacity must be greater than 0")
	}
	if c.Backend.MaxReconnectDelaySeconds < c.Backend.ReconnectDelaySeconds {
		return fmt.Errorf("max reconnect delay must not be lower than reconnect delay")
	}

	// Validate View defaults
	for i, interval := range c.View.Intervals {
		if interval == "" {
			return fmt.Errorf("interval %d cannot be empty", i)
		}
		if _, ok := utils.IntervalDuration(interval); !ok {
			return fmt.Errorf("unknown kline interval %q", interval)
		}
	}
	if c.View.DefaultInterval != "" && !c.SupportsInterval(c.View.DefaultInterval) {
		return fmt.Errorf("default interval %q is not in the configured intervals", c.View.DefaultInterval)
	}

	return nil
}

// -----------------------------------------------------------------------------

// SupportsInterval reports whether interval is one of the configured chart intervals.
func (c *Config) SupportsInterval(interval string) bool {
	for _, i := range c.View.Intervals {
		if i == interval {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// DefaultViewState is the view shown when no preference has been persisted.
func (c *Config) DefaultViewState() models.MViewState {
	return models.MViewState{
		Page:     "dashboard",
		Symbols:  append([]string(nil), c.View.DefaultSymbols...),
		Symbol:   c.View.DefaultSymbol,
		Interval: c.View.DefaultInterval,
		Theme:    "light",
	}
}
