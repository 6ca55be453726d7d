package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDirDefaults(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Market.BaseURL != "https://finnhub.io/api/v1" {
		t.Errorf("base url = %q", cfg.Market.BaseURL)
	}
	if cfg.Alerts.Interval != 5*time.Minute || cfg.Alerts.BatchLimit != 200 {
		t.Errorf("alerts = %+v", cfg.Alerts)
	}
	if cfg.Mail.Enabled {
		t.Error("mail enabled by default")
	}
}

func TestLoadFromDirReadsTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
addr = ":9090"

[alerts]
interval = "10m"
batch_limit = 50

[market]
api_key = "file-key"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Alerts.Interval != 10*time.Minute || cfg.Alerts.BatchLimit != 50 {
		t.Errorf("alerts = %+v", cfg.Alerts)
	}
	if cfg.Market.APIKey != "file-key" {
		t.Errorf("api key = %q", cfg.Market.APIKey)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[market]
api_key = "file-key"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FINNHUB_API_KEY", "env-key")
	t.Setenv("STOCKLABS_ADDR", ":7070")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if cfg.Market.APIKey != "env-key" {
		t.Errorf("api key = %q, want env override", cfg.Market.APIKey)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, want env override", cfg.Server.Addr)
	}
}

func TestSMTPHostEnvEnablesMail(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("MAIL_FROM", "alerts@example.com")

	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if !cfg.Mail.Enabled || cfg.Mail.SMTPHost != "smtp.example.com" {
		t.Errorf("mail = %+v", cfg.Mail)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Alerts: AlertsConfig{Interval: 5 * time.Minute, BatchLimit: 200},
			Market: MarketConfig{RatePerSecond: 20},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero batch limit", func(c *Config) { c.Alerts.BatchLimit = 0 }, true},
		{"sub-minute interval", func(c *Config) { c.Alerts.Interval = 30 * time.Second }, true},
		{"zero rate", func(c *Config) { c.Market.RatePerSecond = 0 }, true},
		{"mail enabled without host", func(c *Config) { c.Mail.Enabled = true; c.Mail.From = "x@example.com" }, true},
		{"mail enabled without from", func(c *Config) { c.Mail.Enabled = true; c.Mail.SMTPHost = "smtp.example.com" }, true},
		{"mail fully configured", func(c *Config) {
			c.Mail.Enabled = true
			c.Mail.SMTPHost = "smtp.example.com"
			c.Mail.From = "x@example.com"
		}, false},
	}
	for _, tc := range cases {
		cfg := valid()
		tc.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromDir(dir); err == nil {
		t.Error("LoadFromDir accepted malformed TOML")
	}
}
