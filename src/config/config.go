package config

import (
	"fmt"
	"os"
	"strings"

	"p2p-observer/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file. Exchange
// cookies are secrets and always come from the environment when set
// (a local .env file is honored, matching how the upstream cookies
// were provisioned originally).
func NewConfig(configPath string) (*Config, error) {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.overrideWithEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) overrideWithEnv() {
	if v := os.Getenv("BINANCE_COOKIE"); v != "" {
		c.Exchanges.Binance.Cookie = v
	}
	if v := os.Getenv("BYBIT_COOKIE"); v != "" {
		c.Exchanges.Bybit.Cookie = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage db_path cannot be empty (use \":memory:\" for a session-only store)")
	}

	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be greater than 0")
	}

	if c.Exchanges.Binance.SearchURL == "" || c.Exchanges.Binance.CatalogURL == "" {
		return fmt.Errorf("binance search_url and catalog_url must be configured")
	}
	if c.Exchanges.Bybit.OnlineURL == "" || c.Exchanges.Bybit.CatalogURL == "" {
		return fmt.Errorf("bybit online_url and catalog_url must be configured")
	}
	if c.Reference.XeURL == "" || c.Reference.GfURL == "" {
		return fmt.Errorf("both reference feed urls must be configured")
	}

	if c.Dashboard.RefreshIntervalMS <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}
	if side := strings.ToUpper(c.Dashboard.DefaultSide); side != "SELL" && side != "BUY" {
		return fmt.Errorf("default side must be SELL or BUY, got '%s'", c.Dashboard.DefaultSide)
	}
	if len(c.Dashboard.SupportedAssets) == 0 {
		return fmt.Errorf("at least one supported asset must be configured")
	}

	if c.Favorites.Path == "" {
		return fmt.Errorf("favorites path cannot be empty")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
