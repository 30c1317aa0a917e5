package config

import (
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestSaveReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:  "/tmp/test-data",
		LogLevel: "debug",
	}
	original.HTTP.Enabled = true
	original.HTTP.Listen = "127.0.0.1:9999"
	original.Webhook.URL = "https://hooks.example.com/chat"
	original.Webhook.APIKey = "key-round-trip"
	original.Webhook.TimeoutSeconds = 30
	original.Webhook.IncludeHistory = true
	original.History.Model = "gpt-4"
	original.History.MaxTokens = 2000
	original.Telegram.Token = "bot-token-456"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir: expected %q, got %q", original.DataDir, loaded.DataDir)
	}
	if loaded.Webhook.URL != original.Webhook.URL {
		t.Errorf("Webhook.URL: expected %q, got %q", original.Webhook.URL, loaded.Webhook.URL)
	}
	if loaded.Webhook.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds: expected 30, got %d", loaded.Webhook.TimeoutSeconds)
	}
	if !loaded.Webhook.IncludeHistory {
		t.Error("IncludeHistory lost")
	}
	if loaded.History.MaxTokens != 2000 {
		t.Errorf("MaxTokens: expected 2000, got %d", loaded.History.MaxTokens)
	}
	if loaded.Telegram.Token != "bot-token-456" {
		t.Errorf("Telegram.Token: expected bot-token-456, got %q", loaded.Telegram.Token)
	}
}

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.HTTP.Listen == "" {
		t.Error("expected default listen address")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults should be written to disk: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("CHATRELAY_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("CHATRELAY_WEBHOOK_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Webhook.URL != "https://env.example.com/hook" {
		t.Errorf("env should override URL, got %q", cfg.Webhook.URL)
	}
	if cfg.Webhook.APIKey != "env-key" {
		t.Errorf("env should override API key, got %q", cfg.Webhook.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing webhook URL")
	}

	cfg.Webhook.URL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed webhook URL")
	}

	cfg.Webhook.URL = "https://hooks.example.com/chat"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.History.MaxTokens = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative token budget")
	}
}
