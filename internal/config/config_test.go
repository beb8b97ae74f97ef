package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	content := `
server:
  addr: ":9090"
  read_timeout: 10s
  write_timeout: 90s

pricing:
  min_training_rows: 20
  trees: 200
  seed: 7

storage:
  max_listings: 2000
  db_path: "./data/test.db"

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true

logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Pricing.MinTrainingRows != 20 || cfg.Pricing.Trees != 200 || cfg.Pricing.Seed != 7 {
		t.Errorf("Pricing = %+v, want {20 200 7}", cfg.Pricing)
	}
	if cfg.Storage.MaxListings != 2000 {
		t.Errorf("Storage.MaxListings = %d, want 2000", cfg.Storage.MaxListings)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken != "test_token" {
		t.Errorf("Telegram = %+v, want enabled with test_token", cfg.Telegram)
	}
}

func TestLoadDefaults(t *testing.T) {
	// Minimal file; everything else comes from defaults.
	cfg, err := Load(writeConfig(t, "logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed with defaults: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Pricing.MinTrainingRows != 15 {
		t.Errorf("default MinTrainingRows = %d, want 15", cfg.Pricing.MinTrainingRows)
	}
	if cfg.Pricing.Trees != 100 || cfg.Pricing.Seed != 42 {
		t.Errorf("default trainer = %+v, want 100 trees, seed 42", cfg.Pricing)
	}
	if cfg.Telegram.Enabled {
		t.Error("telegram should be disabled by default")
	}
	if cfg.Telegram.MaxRetries != 3 || cfg.Telegram.RetryDelayBase != time.Second {
		t.Errorf("default telegram retry = %+v", cfg.Telegram)
	}
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, "logging:\n  level: info\n"))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }},
		{"min rows below 2", func(c *Config) { c.Pricing.MinTrainingRows = 1 }},
		{"zero trees", func(c *Config) { c.Pricing.Trees = 0 }},
		{"too many trees", func(c *Config) { c.Pricing.Trees = 5000 }},
		{"zero max listings", func(c *Config) { c.Storage.MaxListings = 0 }},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "x" }},
		{"telegram enabled without chat", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.BotToken = "x" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
