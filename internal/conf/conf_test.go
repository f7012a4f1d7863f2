package conf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := LoadFromEnv()
	if cfg.Scraper.Mode != "hybrid" {
		t.Errorf("expected hybrid mode, got %q", cfg.Scraper.Mode)
	}
	if cfg.Scraper.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.Scraper.BatchSize)
	}
	if cfg.Scraper.MaxLookback != 20 {
		t.Errorf("expected max lookback 20, got %d", cfg.Scraper.MaxLookback)
	}
	if cfg.Backend.TenantID != "7" {
		t.Errorf("expected tenant 7, got %q", cfg.Backend.TenantID)
	}
	if len(cfg.Gemini.APIKeys) != 0 {
		t.Errorf("expected no api keys, got %v", cfg.Gemini.APIKeys)
	}
	if len(cfg.Gemini.Models) == 0 {
		t.Error("expected default model list")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFromEnvKeyLists(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "k1, k2 ,,k3")
	t.Setenv("GEMINI_MODELS", "m1,m2")
	t.Setenv("STOP_DATE", "2024-03-15")

	cfg := LoadFromEnv()
	if len(cfg.Gemini.APIKeys) != 3 || cfg.Gemini.APIKeys[1] != "k2" {
		t.Errorf("unexpected api keys: %v", cfg.Gemini.APIKeys)
	}
	if len(cfg.Gemini.Models) != 2 {
		t.Errorf("unexpected models: %v", cfg.Gemini.Models)
	}
	if cfg.Scraper.StopDate.IsZero() {
		t.Error("expected stop date to parse")
	}
	if cfg.Scraper.StopDate.Year() != 2024 || cfg.Scraper.StopDate.Month() != 3 {
		t.Errorf("unexpected stop date: %v", cfg.Scraper.StopDate)
	}
}

func TestLoadFromEnvSingleKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("GEMINI_API_KEY", "solo")

	cfg := LoadFromEnv()
	if len(cfg.Gemini.APIKeys) != 1 || cfg.Gemini.APIKeys[0] != "solo" {
		t.Errorf("expected single key fallback, got %v", cfg.Gemini.APIKeys)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := &Config{Scraper: ScraperConfig{Mode: "hybrid", BatchSize: 100}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing bot token")
	}

	cfg = &Config{
		Telegram: TelegramConfig{BotToken: "t"},
		Scraper:  ScraperConfig{Mode: "stream", BatchSize: 100},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestValidateRejectsMalformedStopDate(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("STOP_DATE", "15/03/2024")

	cfg := LoadFromEnv()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for malformed stop date")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "STOP_DATE" {
		t.Errorf("expected STOP_DATE config error, got %v", err)
	}

	t.Setenv("STOP_DATE", "2024-03-15")
	if err := LoadFromEnv().Validate(); err != nil {
		t.Errorf("expected well-formed stop date to pass, got %v", err)
	}
}

func TestLoadChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	content := `channels:
  - ref: "@shop_one"
    name: "Shop One"
  - ref: "https://t.me/shop_two"
  - ref: ""
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	channels, err := LoadChannels(path)
	if err != nil {
		t.Fatalf("failed to load channels: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}
	if channels[0].Name != "Shop One" {
		t.Errorf("unexpected name: %q", channels[0].Name)
	}
	if channels[1].Name != "https://t.me/shop_two" {
		t.Errorf("expected ref used as fallback name, got %q", channels[1].Name)
	}
}

func TestLoadChannelsErrors(t *testing.T) {
	if _, err := LoadChannels(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("channels: []\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadChannels(path); err == nil {
		t.Error("expected error for empty channel list")
	}
}
