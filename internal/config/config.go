// Package config provides configuration management for the parkgate application.
// It handles loading configuration from YAML files, applying environment variable
// and command line overrides, and validating configuration values for server,
// database, JWT, lock vendor, webhook, PIN, logging, and security settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	TTLock   TTLockConfig   `yaml:"ttlock"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Pin      PinConfig      `yaml:"pin"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// TTLockConfig holds lock-vendor API configuration. When ClientID is empty
// the vendor integration is considered unconfigured and PIN issuance runs in
// demo mode.
type TTLockConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Timeout      time.Duration `yaml:"timeout"`
}

// WebhookConfig holds vendor-webhook settings. An empty secret disables
// signature verification.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// PinConfig holds PIN issuance defaults
type PinConfig struct {
	CodeLength           int    `yaml:"code_length"`
	DefaultExpiryMinutes int    `yaml:"default_expiry_minutes"`
	DisplayName          string `yaml:"display_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled       bool     `yaml:"cors_enabled"`
	CORSOrigins       []string `yaml:"cors_origins"`
	RateLimitEnabled  bool     `yaml:"rate_limit_enabled"`
	RateLimitRequests int      `yaml:"rate_limit_requests"`
	RateLimitWindow   string   `yaml:"rate_limit_window"`
}

// Default returns a configuration populated with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "parkgate.db",
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		},
		JWT: JWTConfig{
			Expiration: 24 * time.Hour,
			Issuer:     "parkgate",
		},
		TTLock: TTLockConfig{
			BaseURL: "https://euopen.sciener.com",
			Timeout: 10 * time.Second,
		},
		Pin: PinConfig{
			CodeLength:           6,
			DefaultExpiryMinutes: 5,
			DisplayName:          "Dog park entry PIN",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file and applies environment variable and
// command line overrides. A missing config file is not an error; defaults
// plus overrides apply.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if flags != nil {
		flags.Apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("PARKGATE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("PARKGATE_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("PARKGATE_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("PARKGATE_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("PARKGATE_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("PARKGATE_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("PARKGATE_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("PARKGATE_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("PARKGATE_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// JWT overrides
	if jwtSecret := os.Getenv("PARKGATE_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	// Lock vendor overrides
	if baseURL := os.Getenv("PARKGATE_TTLOCK_BASE_URL"); baseURL != "" {
		c.TTLock.BaseURL = baseURL
	}
	if clientID := os.Getenv("PARKGATE_TTLOCK_CLIENT_ID"); clientID != "" {
		c.TTLock.ClientID = clientID
	}
	if clientSecret := os.Getenv("PARKGATE_TTLOCK_CLIENT_SECRET"); clientSecret != "" {
		c.TTLock.ClientSecret = clientSecret
	}
	if username := os.Getenv("PARKGATE_TTLOCK_USERNAME"); username != "" {
		c.TTLock.Username = username
	}
	if password := os.Getenv("PARKGATE_TTLOCK_PASSWORD"); password != "" {
		c.TTLock.Password = password
	}

	// Webhook overrides
	if secret := os.Getenv("PARKGATE_WEBHOOK_SECRET"); secret != "" {
		c.Webhook.Secret = secret
	}

	// Logging overrides
	if logLevel := os.Getenv("PARKGATE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate JWT config
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret not specified")
	}

	// Validate PIN config
	if c.Pin.CodeLength < 4 || c.Pin.CodeLength > 9 {
		return fmt.Errorf("invalid PIN code length: %d (must be 4-9)", c.Pin.CodeLength)
	}
	if c.Pin.DefaultExpiryMinutes < 1 {
		return fmt.Errorf("invalid default PIN expiry: %d minutes", c.Pin.DefaultExpiryMinutes)
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}

// TTLockConfigured reports whether the lock-vendor credentials are present
func (c *Config) TTLockConfigured() bool {
	return c.TTLock.ClientID != "" && c.TTLock.ClientSecret != "" &&
		c.TTLock.Username != "" && c.TTLock.Password != ""
}
