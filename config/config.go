package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at startup
// and passed down explicitly; nothing in the repository reads it globally.
type Config struct {
	Browser      BrowserConfig `yaml:"browser" toml:"browser"`
	Scraper      ScraperConfig `yaml:"scraper" toml:"scraper"`
	Pool         PoolConfig    `yaml:"pool" toml:"pool"`
	Log          LogConfig     `yaml:"log" toml:"log"`
	LinkedIn     SiteConfig    `yaml:"linkedin" toml:"linkedin"`
	MercadoLibre SiteConfig    `yaml:"mercadolibre" toml:"mercadolibre"`
	Export       ExportConfig  `yaml:"export" toml:"export"`
	Store        StoreConfig   `yaml:"store" toml:"store"`
	Webhook      WebhookConfig `yaml:"webhook" toml:"webhook"`
}

// BrowserConfig controls the Rod browser instance and its contexts.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless" toml:"headless"` // default: true

	// TimeoutMS is the navigation timeout in milliseconds.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"` // default: 30000

	Viewport Viewport `yaml:"viewport" toml:"viewport"` // default: 1920x1080

	// SlowMoMS delays every browser action, to look less mechanical.
	SlowMoMS int `yaml:"slow_mo_ms" toml:"slow_mo_ms"` // default: 100

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox" toml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin" toml:"browser_bin"`

	Proxy string `yaml:"proxy" toml:"proxy"`

	// UserAgents is the pool a context draws its user agent from.
	// Empty means the built-in desktop pool.
	UserAgents []string `yaml:"user_agents" toml:"user_agents"`

	// Locale feeds the Accept-Language header.
	Locale string `yaml:"locale" toml:"locale"` // default: "es-AR"
}

// Viewport is the emulated window size.
type Viewport struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

// Timeout returns TimeoutMS as a duration.
func (b BrowserConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

// SlowMo returns SlowMoMS as a duration.
func (b BrowserConfig) SlowMo() time.Duration {
	return time.Duration(b.SlowMoMS) * time.Millisecond
}

// DelayRange is a [Min, Max] interval in seconds.
type DelayRange struct {
	Min float64 `yaml:"min" toml:"min"`
	Max float64 `yaml:"max" toml:"max"`
}

// Bounds returns the interval as durations.
func (d DelayRange) Bounds() (time.Duration, time.Duration) {
	return seconds(d.Min), seconds(d.Max)
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// MaxRetries is the total number of attempts for a retried operation.
	MaxRetries int `yaml:"max_retries" toml:"max_retries"` // default: 3

	// DelayRange is the random pause before each term's navigation.
	DelayRange DelayRange `yaml:"delay_range" toml:"delay_range"` // default: 2-5s

	// ConcurrentPages is the page pool capacity and the term fan-out limit.
	ConcurrentPages int `yaml:"concurrent_pages" toml:"concurrent_pages"` // default: 3

	// BatchSize is the number of records written per store transaction.
	BatchSize int `yaml:"batch_size" toml:"batch_size"` // default: 50

	// ReadyTimeoutMS bounds the selector wait after navigation.
	ReadyTimeoutMS int `yaml:"ready_timeout_ms" toml:"ready_timeout_ms"` // default: 15000

	// StagnationPasses stops a term after this many passes without new records.
	StagnationPasses int `yaml:"stagnation_passes" toml:"stagnation_passes"` // default: 3

	// BackoffBaseMS and BackoffFactor shape the retry waits.
	BackoffBaseMS int     `yaml:"backoff_base_ms" toml:"backoff_base_ms"` // default: 2000
	BackoffFactor float64 `yaml:"backoff_factor" toml:"backoff_factor"`   // default: 2

	// NavigationsPerSecond paces navigations across all pages.
	NavigationsPerSecond float64 `yaml:"navigations_per_second" toml:"navigations_per_second"` // default: 1

	// BlockedResources lists resource types dropped by the request hijacker.
	// default: ["Image", "Font", "Media"]
	BlockedResources []string `yaml:"blocked_resources" toml:"blocked_resources"`

	BlockAds bool `yaml:"block_ads" toml:"block_ads"` // default: true

	// HTTPDetails tries a plain TLS-fingerprinted fetch before using a page
	// for detail scraping.
	HTTPDetails bool `yaml:"http_details" toml:"http_details"` // default: true
}

// ReadyTimeout returns ReadyTimeoutMS as a duration.
func (s ScraperConfig) ReadyTimeout() time.Duration {
	return time.Duration(s.ReadyTimeoutMS) * time.Millisecond
}

// BackoffBase returns BackoffBaseMS as a duration.
func (s ScraperConfig) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMS) * time.Millisecond
}

// PoolConfig controls the page pool.
type PoolConfig struct {
	// ReplaceClosed makes the pool create a fresh page when a page comes back
	// closed, instead of shrinking.
	ReplaceClosed bool `yaml:"replace_closed" toml:"replace_closed"` // default: false
}

// SiteConfig holds the per-site search settings.
type SiteConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Location narrows job searches (LinkedIn only).
	Location string `yaml:"location" toml:"location"`

	SearchTerms []string `yaml:"search_terms" toml:"search_terms"`

	MaxItemsPerTerm int `yaml:"max_items_per_term" toml:"max_items_per_term"`

	// MaxItems is the run-wide cap (max_jobs / max_products).
	MaxItems int `yaml:"max_items" toml:"max_items"`

	// DetailLimit is how many records per term get a detail-page scrape.
	DetailLimit int `yaml:"detail_limit" toml:"detail_limit"`

	Email    string `yaml:"email" toml:"email"`
	Password string `yaml:"password" toml:"password"`

	// KeyringAccount is looked up in the OS keyring when Password is empty.
	KeyringAccount string `yaml:"keyring_account" toml:"keyring_account"`

	// StorageStatePath is the persisted session (cookies + localStorage).
	StorageStatePath string `yaml:"storage_state_path" toml:"storage_state_path"`
}

// ExportConfig controls CSV output.
type ExportConfig struct {
	Dir string `yaml:"dir" toml:"dir"` // default: "data/output"
}

// StoreConfig controls the sqlite run history. Empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// WebhookConfig controls the run-completed notification.
type WebhookConfig struct {
	URL    string `yaml:"url" toml:"url"`
	Secret string `yaml:"secret" toml:"secret"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // default: "info"
	Format string `yaml:"format" toml:"format"` // "json" or "text"; default: "json"
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:  true,
			TimeoutMS: 30000,
			Viewport:  Viewport{Width: 1920, Height: 1080},
			SlowMoMS:  100,
			Locale:    "es-AR",
		},
		Scraper: ScraperConfig{
			MaxRetries:           3,
			DelayRange:           DelayRange{Min: 2, Max: 5},
			ConcurrentPages:      3,
			BatchSize:            50,
			ReadyTimeoutMS:       15000,
			StagnationPasses:     3,
			BackoffBaseMS:        2000,
			BackoffFactor:        2,
			NavigationsPerSecond: 1,
			BlockedResources:     []string{"Image", "Font", "Media"},
			BlockAds:             true,
			HTTPDetails:          true,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		LinkedIn: SiteConfig{
			BaseURL:          "https://www.linkedin.com/jobs/search/",
			Location:         "Argentina",
			SearchTerms:      []string{"python developer", "data analyst"},
			MaxItemsPerTerm:  100,
			MaxItems:         100,
			DetailLimit:      5,
			StorageStatePath: "data/linkedin_session.json",
		},
		MercadoLibre: SiteConfig{
			BaseURL:         "https://listado.mercadolibre.com.ar",
			SearchTerms:     []string{"monitor", "notebook"},
			MaxItemsPerTerm: 50,
			MaxItems:        100,
			DetailLimit:     8,
		},
		Export: ExportConfig{Dir: "data/output"},
	}
}

// Load builds the configuration: defaults, then the optional .env file, then
// the optional config file at path (.yaml/.yml or .toml), then SCRAPER_*
// environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, models.NewScrapeError(models.ErrCodeInvalidConfig, "failed to read .env", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidConfig, "failed to read config file", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) {
	b := &cfg.Browser
	b.Headless = envBoolOr("SCRAPER_HEADLESS", b.Headless)
	b.TimeoutMS = envIntOr("SCRAPER_TIMEOUT_MS", b.TimeoutMS)
	b.Viewport.Width = envIntOr("SCRAPER_VIEWPORT_WIDTH", b.Viewport.Width)
	b.Viewport.Height = envIntOr("SCRAPER_VIEWPORT_HEIGHT", b.Viewport.Height)
	b.SlowMoMS = envIntOr("SCRAPER_SLOW_MO_MS", b.SlowMoMS)
	b.NoSandbox = envBoolOr("SCRAPER_NO_SANDBOX", b.NoSandbox)
	b.BrowserBin = envOr("SCRAPER_BROWSER_BIN", b.BrowserBin)
	b.Proxy = envOr("SCRAPER_PROXY", b.Proxy)

	s := &cfg.Scraper
	s.MaxRetries = envIntOr("SCRAPER_MAX_RETRIES", s.MaxRetries)
	s.DelayRange.Min = envFloatOr("SCRAPER_DELAY_MIN", s.DelayRange.Min)
	s.DelayRange.Max = envFloatOr("SCRAPER_DELAY_MAX", s.DelayRange.Max)
	s.ConcurrentPages = envIntOr("SCRAPER_CONCURRENT_PAGES", s.ConcurrentPages)
	s.BatchSize = envIntOr("SCRAPER_BATCH_SIZE", s.BatchSize)
	s.ReadyTimeoutMS = envIntOr("SCRAPER_READY_TIMEOUT_MS", s.ReadyTimeoutMS)
	s.StagnationPasses = envIntOr("SCRAPER_STAGNATION_PASSES", s.StagnationPasses)
	s.BackoffBaseMS = envIntOr("SCRAPER_BACKOFF_BASE_MS", s.BackoffBaseMS)
	s.NavigationsPerSecond = envFloatOr("SCRAPER_NAV_RPS", s.NavigationsPerSecond)
	s.BlockedResources = envSliceOr("SCRAPER_BLOCKED_RESOURCES", s.BlockedResources)
	s.HTTPDetails = envBoolOr("SCRAPER_HTTP_DETAILS", s.HTTPDetails)

	cfg.Pool.ReplaceClosed = envBoolOr("SCRAPER_POOL_REPLACE_CLOSED", cfg.Pool.ReplaceClosed)

	cfg.Log.Level = envOr("SCRAPER_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("SCRAPER_LOG_FORMAT", cfg.Log.Format)

	li := &cfg.LinkedIn
	li.Email = envOr("LINKEDIN_EMAIL", li.Email)
	li.Password = envOr("LINKEDIN_PASSWORD", li.Password)
	li.SearchTerms = envSliceOr("LINKEDIN_SEARCH_TERMS", li.SearchTerms)
	li.StorageStatePath = envOr("LINKEDIN_STORAGE_STATE", li.StorageStatePath)

	ml := &cfg.MercadoLibre
	ml.SearchTerms = envSliceOr("MELI_SEARCH_TERMS", ml.SearchTerms)
	ml.BaseURL = envOr("MELI_BASE_URL", ml.BaseURL)

	cfg.Export.Dir = envOr("SCRAPER_OUTPUT_DIR", cfg.Export.Dir)
	cfg.Store.Path = envOr("SCRAPER_DB_PATH", cfg.Store.Path)
	cfg.Webhook.URL = envOr("SCRAPER_WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.Secret = envOr("SCRAPER_WEBHOOK_SECRET", cfg.Webhook.Secret)
}

// Validate reports every invalid setting at once. A non-positive
// concurrent_pages is rejected here so the page pool can never be built in a
// state where acquiring a page would block forever.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Scraper.ConcurrentPages > 0, "concurrent_pages must be > 0, got %d", c.Scraper.ConcurrentPages)
	check(c.Scraper.MaxRetries > 0, "max_retries must be > 0, got %d", c.Scraper.MaxRetries)
	check(c.Scraper.BatchSize > 0, "batch_size must be > 0, got %d", c.Scraper.BatchSize)
	check(c.Scraper.StagnationPasses > 0, "stagnation_passes must be > 0, got %d", c.Scraper.StagnationPasses)
	check(c.Scraper.DelayRange.Min >= 0 && c.Scraper.DelayRange.Min <= c.Scraper.DelayRange.Max,
		"delay_range must satisfy 0 <= min <= max, got (%g, %g)", c.Scraper.DelayRange.Min, c.Scraper.DelayRange.Max)
	check(c.Scraper.BackoffFactor >= 1, "backoff_factor must be >= 1, got %g", c.Scraper.BackoffFactor)
	check(c.Scraper.NavigationsPerSecond > 0, "navigations_per_second must be > 0, got %g", c.Scraper.NavigationsPerSecond)
	check(c.Browser.TimeoutMS > 0, "timeout_ms must be > 0, got %d", c.Browser.TimeoutMS)
	check(c.Browser.Viewport.Width > 0 && c.Browser.Viewport.Height > 0,
		"viewport must be positive, got %dx%d", c.Browser.Viewport.Width, c.Browser.Viewport.Height)
	check(c.Browser.SlowMoMS >= 0, "slow_mo_ms must be >= 0, got %d", c.Browser.SlowMoMS)

	for name, site := range map[string]SiteConfig{"linkedin": c.LinkedIn, "mercadolibre": c.MercadoLibre} {
		check(site.MaxItemsPerTerm > 0, "%s.max_items_per_term must be > 0, got %d", name, site.MaxItemsPerTerm)
		check(site.MaxItems > 0, "%s.max_items must be > 0, got %d", name, site.MaxItems)
		check(site.DetailLimit >= 0, "%s.detail_limit must be >= 0, got %d", name, site.DetailLimit)
	}

	if len(errs) == 0 {
		return nil
	}
	return models.NewScrapeError(models.ErrCodeInvalidConfig, "invalid configuration", errors.Join(errs...))
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
