package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	HTTP     struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Webhook struct {
		URL            string `json:"url"`
		APIKey         string `json:"api_key"`
		TimeoutSeconds int    `json:"timeout_seconds"`
		IncludeHistory bool   `json:"include_history"`
	} `json:"webhook"`
	History struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	} `json:"history"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".chatrelay"),
		LogLevel: "info",
	}
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:8321"
	cfg.Webhook.TimeoutSeconds = 60
	cfg.History.Model = "gpt-4"
	cfg.History.MaxTokens = 0 // full history by default

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if u := os.Getenv("CHATRELAY_WEBHOOK_URL"); u != "" {
		cfg.Webhook.URL = u
	}
	if key := os.Getenv("CHATRELAY_WEBHOOK_API_KEY"); key != "" {
		cfg.Webhook.APIKey = key
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// Validate checks the configuration once at startup. The webhook URL is the
// one hard requirement for relaying messages.
func (c *Config) Validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is not configured (set it in the config file or CHATRELAY_WEBHOOK_URL)")
	}
	u, err := url.Parse(c.Webhook.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("webhook.url %q is not a valid http(s) URL", c.Webhook.URL)
	}
	if c.Webhook.TimeoutSeconds < 0 {
		return fmt.Errorf("webhook.timeout_seconds must not be negative")
	}
	if c.History.MaxTokens < 0 {
		return fmt.Errorf("history.max_tokens must not be negative")
	}
	return nil
}

// Save writes the configuration as indented JSON, atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
