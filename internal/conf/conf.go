package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// defaultModels is the rotation order tried when GEMINI_MODELS is unset
var defaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro",
	"gemini-1.5-pro-latest",
	"gemini-pro",
}

// Config represents application configuration
type Config struct {
	// Telegram configuration
	Telegram TelegramConfig

	// Gemini configuration (optional, rule-based extraction is used when empty)
	Gemini GeminiConfig

	// Backend configuration (optional, products queue offline when empty)
	Backend BackendConfig

	// Scraper run configuration
	Scraper ScraperConfig

	// Store configuration
	Store StoreConfig

	// ChannelsPath is the YAML file listing channels to scrape
	ChannelsPath string
}

// TelegramConfig contains Telegram configuration
type TelegramConfig struct {
	BotToken string
}

// GeminiConfig contains Gemini configuration
type GeminiConfig struct {
	APIKeys []string
	Models  []string
}

// BackendConfig contains product backend configuration
type BackendConfig struct {
	URL      string
	Token    string
	TenantID string
}

// ScraperConfig contains run-mode configuration
type ScraperConfig struct {
	Mode        string // "history", "live" or "hybrid"
	StopDate    time.Time
	StopDateRaw string // as given, kept so Validate can reject bad input
	BatchSize   int
	MaxLookback int
	MaxRetries  int
}

// StoreConfig contains local storage configuration
type StoreConfig struct {
	DBPath   string
	MediaDir string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	apiKeys := splitList(os.Getenv("GEMINI_API_KEYS"))
	if len(apiKeys) == 0 {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			apiKeys = []string{key}
		}
	}

	models := splitList(os.Getenv("GEMINI_MODELS"))
	if len(models) == 0 {
		models = defaultModels
	}

	tenantID := os.Getenv("TENANT_ID")
	if tenantID == "" {
		tenantID = "7"
	}

	mode := os.Getenv("SCRAPER_MODE")
	if mode == "" {
		mode = "hybrid"
	}

	stopDateRaw := os.Getenv("STOP_DATE")
	var stopDate time.Time
	if stopDateRaw != "" {
		if parsed, err := time.Parse("2006-01-02", stopDateRaw); err == nil {
			stopDate = parsed
		}
	}

	// Product DB path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".channel-scraper", "products.db")
	}

	return &Config{
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKeys: apiKeys,
			Models:  models,
		},
		Backend: BackendConfig{
			URL:      os.Getenv("BACKEND_URL"),
			Token:    os.Getenv("BACKEND_TOKEN"),
			TenantID: tenantID,
		},
		Scraper: ScraperConfig{
			Mode:        mode,
			StopDate:    stopDate,
			StopDateRaw: stopDateRaw,
			BatchSize:   envInt("BATCH_SIZE", 100),
			MaxLookback: envInt("MAX_LOOKBACK", 20),
			MaxRetries:  envInt("MAX_RETRIES", 3),
		},
		Store: StoreConfig{
			DBPath:   dbPath,
			MediaDir: envString("MEDIA_DIR", "downloaded_images"),
		},
		ChannelsPath: envString("CHANNELS_CONFIG_PATH", "channels.yaml"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required"}
	}
	switch c.Scraper.Mode {
	case "history", "live", "hybrid":
	default:
		return &ConfigError{Field: "SCRAPER_MODE", Message: "must be history, live or hybrid"}
	}
	if c.Scraper.BatchSize <= 0 {
		return &ConfigError{Field: "BATCH_SIZE", Message: "must be positive"}
	}
	// A stop date that did not parse would silently scan full history
	if c.Scraper.StopDateRaw != "" && c.Scraper.StopDate.IsZero() {
		return &ConfigError{Field: "STOP_DATE", Message: "must be YYYY-MM-DD"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
