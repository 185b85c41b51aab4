// Package config loads application configuration. Values come from an
// optional TOML file first, then environment variables on top, so a
// deployment can ship a base file and override per-instance with env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage backend names accepted in StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	App     AppConfig     `toml:"app"`
	HTTP    HTTPConfig    `toml:"http"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `toml:"name"`
	Environment Environment `toml:"environment"`
	Version     string      `toml:"version"`

	// Timezone in which calendar months are evaluated for the automatic
	// reset (default: Asia/Seoul, the source system's locale).
	Timezone string         `toml:"timezone"`
	Location *time.Location `toml:"-"`

	ShutdownTimeout time.Duration `toml:"-"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`

	// AdminTokenHash is the bcrypt hash guarding mutating endpoints.
	// Empty leaves them open (single-operator deployments).
	AdminTokenHash string `toml:"admin_token_hash"`

	ReadTimeout    time.Duration `toml:"-"`
	WriteTimeout   time.Duration `toml:"-"`
	IdleTimeout    time.Duration `toml:"-"`
	RequestTimeout time.Duration `toml:"-"`
}

// StorageConfig selects and configures the state store backend.
type StorageConfig struct {
	// Backend is one of memory, file, sqlite, postgres, redis.
	Backend string `toml:"backend"`

	// FileDir is the directory for the file backend.
	FileDir string `toml:"file_dir"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `toml:"sqlite_path"`

	// DatabaseURL is the postgres connection string.
	DatabaseURL string `toml:"database_url"`

	// Redis connection settings.
	RedisHost     string `toml:"redis_host"`
	RedisPort     int    `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `toml:"level"`
	AddCaller bool   `toml:"add_caller"`
}

// defaults returns the baseline configuration before file and env overrides.
func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:            "penalty-engine",
			Environment:     EnvDevelopment,
			Version:         "0.1.0",
			Timezone:        "Asia/Seoul",
			ShutdownTimeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			MetricsEnabled: true,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			FileDir:    "data",
			SQLitePath: "data/penalty.db",
			RedisHost:  "localhost",
			RedisPort:  6379,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// PENALTY_CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("PENALTY_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}
	cfg.App.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides file and default values with environment variables.
func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Environment = Environment(getEnv("APP_ENV", string(c.App.Environment)))
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
	c.App.Timezone = getEnv("APP_TIMEZONE", c.App.Timezone)
	c.App.ShutdownTimeout = getEnvDuration("APP_SHUTDOWN_TIMEOUT", c.App.ShutdownTimeout)

	c.HTTP.Host = getEnv("HTTP_HOST", c.HTTP.Host)
	c.HTTP.Port = getEnvInt("HTTP_PORT", c.HTTP.Port)
	c.HTTP.MetricsEnabled = getEnvBool("HTTP_METRICS_ENABLED", c.HTTP.MetricsEnabled)
	c.HTTP.AdminTokenHash = getEnv("HTTP_ADMIN_TOKEN_HASH", c.HTTP.AdminTokenHash)
	c.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.IdleTimeout = getEnvDuration("HTTP_IDLE_TIMEOUT", c.HTTP.IdleTimeout)
	c.HTTP.RequestTimeout = getEnvDuration("HTTP_REQUEST_TIMEOUT", c.HTTP.RequestTimeout)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.FileDir = getEnv("STORAGE_FILE_DIR", c.Storage.FileDir)
	c.Storage.SQLitePath = getEnv("STORAGE_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.DatabaseURL = getEnv("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.RedisHost = getEnv("REDIS_HOST", c.Storage.RedisHost)
	c.Storage.RedisPort = getEnvInt("REDIS_PORT", c.Storage.RedisPort)
	c.Storage.RedisPassword = getEnv("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.RedisDB = getEnvInt("REDIS_DB", c.Storage.RedisDB)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.AddCaller = getEnvBool("LOG_ADD_CALLER", c.Log.AddCaller)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendPostgres, BackendRedis:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND %q is not one of memory, file, sqlite, postgres, redis", c.Storage.Backend))
	}

	if c.Storage.Backend == BackendPostgres && c.Storage.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required for the postgres backend")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
