// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.todoflow/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Listen addresses for the three processes (API, bridge, gateway)
//   - Storage: PostgreSQL connection (see storage.go)
//   - AI: model selection for the chat gateway
//   - Bridge wiring: CRUD API base URL and bridge SSE URL
//
// Validation: fail-fast range checks in validation.go with sentinel errors
// for Go-idiomatic checking with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidListenAddr indicates a listen address is malformed.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidAPIBaseURL indicates the CRUD API base URL is malformed.
	ErrInvalidAPIBaseURL = errors.New("invalid API base URL")

	// ErrInvalidBridgeURL indicates the bridge SSE URL is malformed.
	ErrInvalidBridgeURL = errors.New("invalid bridge URL")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidToolTimeout indicates the tool call timeout is out of range.
	ErrInvalidToolTimeout = errors.New("invalid tool call timeout")
)

// Config stores application configuration shared by the serve, bridge and
// gateway commands. Each command reads only the fields it needs.
type Config struct {
	// Listen addresses
	APIAddr     string `mapstructure:"api_addr" json:"api_addr"`
	BridgeAddr  string `mapstructure:"bridge_addr" json:"bridge_addr"`
	GatewayAddr string `mapstructure:"gateway_addr" json:"gateway_addr"`

	// Bridge wiring: where tools reach the CRUD API, and where the gateway
	// reaches the bridge's SSE endpoint.
	APIBaseURL string `mapstructure:"api_base_url" json:"api_base_url"`
	BridgeURL  string `mapstructure:"bridge_url" json:"bridge_url"`

	// Outbound tool call timeout in seconds
	ToolTimeoutSeconds int `mapstructure:"tool_timeout_seconds" json:"tool_timeout_seconds"`

	// AI model for the chat gateway
	ModelName string `mapstructure:"model_name" json:"model_name"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP hardening
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".todoflow")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Listen addresses for the three services on one host
	viper.SetDefault("api_addr", ":8080")
	viper.SetDefault("bridge_addr", ":3001")
	viper.SetDefault("gateway_addr", ":3000")

	// Bridge wiring
	viper.SetDefault("api_base_url", "http://localhost:8080")
	viper.SetDefault("bridge_url", "http://localhost:3001/sse")
	viper.SetDefault("tool_timeout_seconds", 10)

	// AI defaults
	viper.SetDefault("model_name", "gemini-2.0-flash-lite")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "todoflow")
	viper.SetDefault("postgres_password", "todoflow_dev_password")
	viper.SetDefault("postgres_db_name", "todoflow")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// CORS defaults (gateway dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Rate limiter burst per IP
	viper.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by the googlegenai plugin and is
// deliberately not part of Config. DATABASE_URL is handled in storage.go.
func bindEnvVariables() {
	envBindings := map[string]string{
		"api_addr":          "TODOFLOW_API_ADDR",
		"bridge_addr":       "TODOFLOW_BRIDGE_ADDR",
		"gateway_addr":      "TODOFLOW_GATEWAY_ADDR",
		"api_base_url":      "TODOFLOW_API_BASE_URL",
		"bridge_url":        "TODOFLOW_BRIDGE_URL",
		"model_name":        "TODOFLOW_MODEL",
		"postgres_password": "TODOFLOW_POSTGRES_PASSWORD",
	}

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Warn("binding environment variable", "key", key, "env", env, "error", err)
		}
	}
}
