// Package config provides configuration management for the stocklabs service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Market        MarketConfig       `mapstructure:"market"`
	Alerts        AlertsConfig       `mapstructure:"alerts"`
	Mail          MailConfig         `mapstructure:"mail"`
	Commentary    CommentaryConfig   `mapstructure:"commentary"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MarketConfig holds market data provider configuration.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

// AlertsConfig holds alert evaluation configuration.
type AlertsConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

// MailConfig holds SMTP transport configuration.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// CommentaryConfig holds LLM commentary configuration.
type CommentaryConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// NotificationConfig holds notification channel configuration.
type NotificationConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stocklabs"
	}
	return filepath.Join(home, ".config", "stocklabs")
}

// Load reads configuration from the config directory and the environment.
func Load() (*Config, error) {
	return LoadFromDir(DefaultConfigDir())
}

// LoadFromDir reads configuration from the given directory.
func LoadFromDir(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Missing file is fine: defaults plus env overrides.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.path", filepath.Join(DefaultConfigDir(), "stocklabs.db"))
	v.SetDefault("market.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("market.request_timeout", 10*time.Second)
	v.SetDefault("market.rate_per_second", 20.0)
	v.SetDefault("market.rate_burst", 30)
	v.SetDefault("alerts.interval", 5*time.Minute)
	v.SetDefault("alerts.batch_limit", 200)
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("commentary.model", "gpt-4o-mini")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("STOCKLABS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STOCKLABS_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTPHost = v
		cfg.Mail.Enabled = true
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Commentary.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Commentary.BaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Alerts.BatchLimit <= 0 {
		return fmt.Errorf("alerts.batch_limit must be positive")
	}
	if c.Alerts.Interval < time.Minute {
		return fmt.Errorf("alerts.interval must be at least one minute")
	}
	if c.Market.RatePerSecond <= 0 {
		return fmt.Errorf("market.rate_per_second must be positive")
	}
	if c.Mail.Enabled && (c.Mail.SMTPHost == "" || c.Mail.From == "") {
		return fmt.Errorf("mail.smtp_host and mail.from are required when mail is enabled")
	}
	return nil
}
