package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the users API
type Config struct {
	// Server configuration
	Port     int    `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage backend for user records
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// Database configuration
	Database DatabaseConfig

	// Users list cache
	Cache CacheConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// DatabaseConfig holds PostgreSQL connection and pool configuration
type DatabaseConfig struct {
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"prefer"`

	// Pool settings
	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"20"`
	IdleTimeout     time.Duration `env:"DB_IDLE_TIMEOUT" envDefault:"30s"`
	AcquireTimeout  time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"2s"`
	QueryTimeout    time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
	MonitorInterval time.Duration `env:"DB_MONITOR_INTERVAL" envDefault:"15s"`
}

// CacheConfig holds Redis configuration for the users list cache.
// An empty Addr disables the cache.
type CacheConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASS"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

// TimeoutConfig holds server timeouts
type TimeoutConfig struct {
	Shutdown   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	ReadHeader time.Duration `env:"TIMEOUT_READ_HEADER" envDefault:"10s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Port)
	}

	switch c.StorageDriver {
	case DriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver: %s (must be postgres or memory)", c.StorageDriver)
	}

	if c.Cache.Addr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Validate checks the database settings required to open the pool
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", d.Port)
	}
	if d.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if d.AcquireTimeout <= 0 {
		return fmt.Errorf("database acquire timeout must be positive")
	}
	if d.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be positive")
	}
	return nil
}

// CacheEnabled reports whether the Redis users list cache is configured
func (c *Config) CacheEnabled() bool {
	return c.Cache.Addr != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
