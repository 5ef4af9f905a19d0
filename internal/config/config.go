// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "botpanel"
	DefaultPGSSLMode    = "disable"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultPollInterval = 30
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Telegram TelegramConfig `toml:"telegram"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the ops HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// OpenAIConfig holds the completion provider endpoint, key, and model.
// An empty APIKey disables AI replies; it is not a startup error.
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// TelegramConfig holds bot pool settings: the token decryption passphrase
// and the reconciliation poll interval in seconds.
type TelegramConfig struct {
	TokenSecret         string `toml:"token_secret"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. Environment variables POSTGRES_PASSWORD,
// OPENAI_API_KEY, and TELEGRAM_TOKEN_SECRET override their file counterparts.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIURL,
			Model:   DefaultOpenAIModel,
		},
		Telegram: TelegramConfig{
			PollIntervalSeconds: DefaultPollInterval,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN_SECRET"); v != "" {
		cfg.Telegram.TokenSecret = v
	}

	return cfg, nil
}

// Validate checks startup requirements: database credentials are fatal when
// missing, a missing OpenAI key only degrades AI replies to silence.
func (c Config) Validate() error {
	if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.Database == "" {
		return fmt.Errorf("postgres host, user, and database are required")
	}
	return nil
}
