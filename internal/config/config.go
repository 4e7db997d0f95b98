// Package config loads the campaign bot configuration from a YAML file
// overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LukiaConfig holds the connection settings for the Lukia marketing API.
type LukiaConfig struct {
	BaseURL            string `yaml:"base_url" envconfig:"LUKIA_BASE_URL"`
	Token              string `yaml:"token" envconfig:"LUKIA_API_TOKEN"`
	DefaultCompany     string `yaml:"default_company" envconfig:"LUKIA_DEFAULT_COMPANY"`
	DefaultIntegration string `yaml:"default_integration" envconfig:"LUKIA_DEFAULT_INTEGRATION"`
}

// OpenAIConfig holds the classifier oracle settings.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	Model  string `yaml:"model" envconfig:"OPENAI_MODEL"`
}

// APIConfig holds the HTTP transport settings.
type APIConfig struct {
	Addr string `yaml:"addr" envconfig:"API_ADDR"`
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER"`
	DSN    string `yaml:"dsn" envconfig:"DATABASE_DSN"`
}

// TelegramConfig holds the optional Telegram transport settings. An empty
// token disables the Telegram bot.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// LoggingConfig defines logging related configuration. File is the optional
// JSON log sink alongside stderr.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	File  string `yaml:"file" envconfig:"LOG_FILE"`
}

// Config aggregates the full campaign bot configuration.
type Config struct {
	Lukia    LukiaConfig    `yaml:"lukia"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables. An
// empty path skips the file and uses environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Lukia.BaseURL) == "" {
		return fmt.Errorf("lukia.base_url is required")
	}
	if strings.TrimSpace(cfg.Lukia.Token) == "" {
		return fmt.Errorf("lukia.token is required")
	}
	cfg.Lukia.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Lukia.BaseURL), "/")

	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if driver == "" {
		driver = DriverMemory
	}
	switch driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required when store.driver is %q", driver)
		}
	default:
		return fmt.Errorf("invalid store.driver %q; allowed: memory, sqlite, postgres", cfg.Store.Driver)
	}
	cfg.Store.Driver = driver

	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}

	if strings.TrimSpace(cfg.API.Addr) == "" {
		cfg.API.Addr = ":8080"
	}
	return nil
}
