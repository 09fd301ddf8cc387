// Package config loads the YAML server configuration and resolves the
// environment fallback credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the server looks for its config when no flag is set.
const DefaultPath = "config.yaml"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, host:port.
}

// DatabaseConfig holds the storage settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // postgres:// URL or a SQLite file path.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name.
	File       string `yaml:"file"`        // Rotating log file path; empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this many megabytes.
	MaxBackups int    `yaml:"max_backups"` // Rotated files to keep.
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig holds the admin session settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"` // HS256 signing secret; generated at startup when empty.
	TokenTTL  time.Duration `yaml:"token_ttl"`  // Admin session lifetime.

	// Bootstrap credentials, used once when the admins table is empty.
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// RedisConfig holds the optional Redis connection for inbound rate limiting.
type RedisConfig struct {
	Addr     string `yaml:"addr"` // Empty disables Redis-backed features.
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig bounds inbound chat requests per client.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// FallbackKeys maps provider names to statically configured secrets used
	// when the database has no usable key for that provider.
	FallbackKeys map[string]string `yaml:"fallback_keys"`
}

// Load reads and parses the YAML config at path, applying defaults. A
// missing file yields the defaults rather than an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if errParse := yaml.Unmarshal(data, cfg); errParse != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errParse)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = "llmhub.db"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
}

// FallbackSecrets merges configured fallback keys with provider environment
// variables of the form <PROVIDER>_API_KEY. Explicit config wins over the
// environment.
func (c *Config) FallbackSecrets(providers []string) map[string]string {
	secrets := make(map[string]string, len(providers))
	for _, provider := range providers {
		envName := strings.ToUpper(provider) + "_API_KEY"
		if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
			secrets[provider] = value
		}
	}
	for provider, value := range c.FallbackKeys {
		if value = strings.TrimSpace(value); value != "" {
			secrets[strings.TrimSpace(provider)] = value
		}
	}
	return secrets
}
