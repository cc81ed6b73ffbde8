package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Claim  ClaimConfig
	Admin  AdminConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port              string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout   int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	TrustProxyHeaders bool   `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
	CORSOrigins       string `envconfig:"CORS_ORIGINS" default:"*"`
	MetricsEnabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host           string        `envconfig:"DB_HOST" default:"localhost"`
	Port           int           `envconfig:"DB_PORT" default:"5432"`
	User           string        `envconfig:"DB_USER" default:"postgres"`
	Password       string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name           string        `envconfig:"DB_NAME" default:"coupon_db"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns       int           `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns       int           `envconfig:"DB_MIN_CONNS" default:"5"`
	ConnectRetries int           `envconfig:"DB_CONNECT_RETRIES" default:"5"`
	QueryTimeout   time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"5s"`
	AutoMigrate    bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// ClaimConfig controls the public claim flow.
type ClaimConfig struct {
	CooldownMinutes int `envconfig:"COOLDOWN_PERIOD_MINUTES" default:"60"`
	StampAttempts   int `envconfig:"CLAIM_STAMP_ATTEMPTS" default:"3"`
	RateLimit       int `envconfig:"CLAIM_RATE_LIMIT" default:"30"` // requests per minute per address
}

// Cooldown returns the cooldown window as a duration.
func (c ClaimConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// AdminConfig holds the credentials for the admin API.
// Admin routes are not mounted when PasswordHash is empty.
type AdminConfig struct {
	Username     string `envconfig:"ADMIN_USERNAME" default:"admin"`
	PasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
}

// Enabled reports whether admin credentials are configured.
func (c AdminConfig) Enabled() bool {
	return c.PasswordHash != ""
}

// Load reads an optional .env file and parses environment variables into the Config struct.
// Variables already present in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	if c.Claim.CooldownMinutes < 1 {
		return fmt.Errorf("COOLDOWN_PERIOD_MINUTES must be at least 1, got %d", c.Claim.CooldownMinutes)
	}
	if c.Claim.StampAttempts < 1 {
		return fmt.Errorf("CLAIM_STAMP_ATTEMPTS must be at least 1, got %d", c.Claim.StampAttempts)
	}
	if c.Claim.RateLimit < 1 {
		return fmt.Errorf("CLAIM_RATE_LIMIT must be at least 1, got %d", c.Claim.RateLimit)
	}
	if c.DB.QueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be positive, got %s", c.DB.QueryTimeout)
	}
	if c.Server.ShutdownTimeout < 1 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be at least 1, got %d", c.Server.ShutdownTimeout)
	}
	return nil
}
