// Package config loads service configuration from the environment plus the
// optional YAML file naming the clients allowed to run data migration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/genenetwork/gn-auth/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Stores        StoreConfig
	Migration     MigrationConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// StoreConfig locates the three backing stores: the SQLite authorisation
// store, the datasets database and the legacy registry.
type StoreConfig struct {
	AuthDB   string
	SQLURI   string
	RedisURL string
}

// MigrationConfig controls the data migration endpoint.
type MigrationConfig struct {
	// ClientsFile is a YAML file listing the oauth2 client ids allowed to
	// call the migration endpoint. Empty means nobody may.
	ClientsFile    string
	AllowedClients []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GNAUTH_HOST", "0.0.0.0"),
			Port:            getEnv("GNAUTH_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GNAUTH_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GNAUTH_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("GNAUTH_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GNAUTH_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("GNAUTH_HEALTH_PORT", "9090"),
		},
		Stores: StoreConfig{
			AuthDB:   getEnv("AUTH_DB", ""),
			SQLURI:   getEnv("SQL_URI", ""),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Migration: MigrationConfig{
			ClientsFile: getEnv("GNAUTH_MIGRATION_CLIENTS_FILE", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("GNAUTH_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("GNAUTH_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("GNAUTH_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("GNAUTH_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("GNAUTH_OTEL_SERVICE_NAME", "gn-auth"),
			OTelServiceVersion: getEnv("GNAUTH_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("GNAUTH_OTEL_INSECURE", true),
		},
	}

	if cfg.Migration.ClientsFile != "" {
		clients, err := LoadMigrationClients(cfg.Migration.ClientsFile)
		if err != nil {
			return nil, err
		}
		cfg.Migration.AllowedClients = clients
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// migrationClientsFile is the on-disk shape of the allow-list file.
type migrationClientsFile struct {
	Clients []string `yaml:"migration_clients"`
}

// LoadMigrationClients reads the migration client allow-list from a YAML
// file.
func LoadMigrationClients(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration clients file: %w", err)
	}
	var file migrationClientsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse migration clients file: %w", err)
	}
	return file.Clients, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// AUTH_DB may legitimately be unset: the migration endpoint then
	// reports itself unavailable instead of failing startup.

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
