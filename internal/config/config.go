package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Limits    LimitsConfig    `yaml:"limits"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timezone is the IANA zone calendar days are counted in.
	Timezone string `yaml:"timezone"`
}

// StorageConfig selects the backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type LimitsConfig struct {
	SignupPerMinute   int `yaml:"signup_per_minute"`
	RequestsPerSecond int `yaml:"requests_per_second"`
	MaxKeysPerUser    int `yaml:"max_keys_per_user"`
}

// CatalogConfig points at a metric catalog file. Empty uses the built-in one.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// SQLitePath, if set, also writes log records to a SQLite database.
	SQLitePath string `yaml:"sqlite_path"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves Server.Timezone; empty means UTC.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// SlogLevel maps Level to a slog.Level; unknown values mean info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFESTATS_ and underscore-separated paths:
//
//	LIFESTATS_SERVER_HOST, LIFESTATS_SERVER_PORT, LIFESTATS_SERVER_TIMEZONE,
//	LIFESTATS_STORAGE_DRIVER,
//	LIFESTATS_DB_HOST, LIFESTATS_DB_PORT, LIFESTATS_DB_NAME,
//	LIFESTATS_DB_USER, LIFESTATS_DB_PASSWORD, LIFESTATS_DB_SSLMODE,
//	LIFESTATS_LIMITS_SIGNUP_PER_MINUTE, LIFESTATS_LIMITS_REQUESTS_PER_SECOND,
//	LIFESTATS_LIMITS_MAX_KEYS_PER_USER,
//	LIFESTATS_CATALOG_PATH, LIFESTATS_LOG_LEVEL, LIFESTATS_LOG_SQLITE_PATH,
//	LIFESTATS_TAILSCALE_ENABLED, LIFESTATS_TAILSCALE_HOSTNAME, LIFESTATS_TAILSCALE_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("LIFESTATS_SERVER_HOST", &cfg.Server.Host)
	envInt("LIFESTATS_SERVER_PORT", &cfg.Server.Port)
	envString("LIFESTATS_SERVER_TIMEZONE", &cfg.Server.Timezone)
	envString("LIFESTATS_STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("LIFESTATS_DB_HOST", &cfg.Database.Host)
	envInt("LIFESTATS_DB_PORT", &cfg.Database.Port)
	envString("LIFESTATS_DB_NAME", &cfg.Database.Name)
	envString("LIFESTATS_DB_USER", &cfg.Database.User)
	envString("LIFESTATS_DB_PASSWORD", &cfg.Database.Password)
	envString("LIFESTATS_DB_SSLMODE", &cfg.Database.SSLMode)
	envInt("LIFESTATS_LIMITS_SIGNUP_PER_MINUTE", &cfg.Limits.SignupPerMinute)
	envInt("LIFESTATS_LIMITS_REQUESTS_PER_SECOND", &cfg.Limits.RequestsPerSecond)
	envInt("LIFESTATS_LIMITS_MAX_KEYS_PER_USER", &cfg.Limits.MaxKeysPerUser)
	envString("LIFESTATS_CATALOG_PATH", &cfg.Catalog.Path)
	envString("LIFESTATS_LOG_LEVEL", &cfg.Logging.Level)
	envString("LIFESTATS_LOG_SQLITE_PATH", &cfg.Logging.SQLitePath)
	envBool("LIFESTATS_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	envString("LIFESTATS_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	envString("LIFESTATS_TAILSCALE_STATE_DIR", &cfg.Tailscale.StateDir)
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.Limits.SignupPerMinute == 0 {
		c.Limits.SignupPerMinute = 5
	}
	if c.Limits.RequestsPerSecond == 0 {
		c.Limits.RequestsPerSecond = 10
	}
	if c.Limits.MaxKeysPerUser == 0 {
		c.Limits.MaxKeysPerUser = 5
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "lifestats"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if _, err := c.Server.Location(); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	if c.Limits.SignupPerMinute < 0 || c.Limits.RequestsPerSecond < 0 || c.Limits.MaxKeysPerUser < 0 {
		return fmt.Errorf("limits must not be negative")
	}

	switch c.Storage.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Storage.Driver)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	return nil
}
