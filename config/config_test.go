package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "scraper.yaml", `
browser:
  headless: false
  timeout_ms: 12000
  viewport: {width: 1280, height: 720}
scraper:
  concurrent_pages: 5
  delay_range: {min: 0.5, max: 1.5}
mercadolibre:
  search_terms: [monitor, teclado]
  max_items_per_term: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 12000, cfg.Browser.TimeoutMS)
	assert.Equal(t, Viewport{Width: 1280, Height: 720}, cfg.Browser.Viewport)
	assert.Equal(t, 5, cfg.Scraper.ConcurrentPages)
	assert.Equal(t, []string{"monitor", "teclado"}, cfg.MercadoLibre.SearchTerms)
	assert.Equal(t, 20, cfg.MercadoLibre.MaxItemsPerTerm)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, "https://listado.mercadolibre.com.ar", cfg.MercadoLibre.BaseURL)

	lo, hi := cfg.Scraper.DelayRange.Bounds()
	assert.Equal(t, "500ms", lo.String())
	assert.Equal(t, "1.5s", hi.String())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "scraper.toml", `
[scraper]
concurrent_pages = 2
max_retries = 4

[linkedin]
location = "Chile"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scraper.ConcurrentPages)
	assert.Equal(t, 4, cfg.Scraper.MaxRetries)
	assert.Equal(t, "Chile", cfg.LinkedIn.Location)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "scraper.ini", "x=1")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidConfig, models.CodeOf(err))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "scraper.yaml", "scraper:\n  concurrent_pages: 5\n")
	t.Setenv("SCRAPER_CONCURRENT_PAGES", "7")
	t.Setenv("MELI_SEARCH_TERMS", "silla, mesa ,")
	t.Setenv("LINKEDIN_EMAIL", "me@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scraper.ConcurrentPages)
	assert.Equal(t, []string{"silla", "mesa"}, cfg.MercadoLibre.SearchTerms)
	assert.Equal(t, "me@example.com", cfg.LinkedIn.Email)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"zero pages", func(c *Config) { c.Scraper.ConcurrentPages = 0 }, "concurrent_pages"},
		{"negative pages", func(c *Config) { c.Scraper.ConcurrentPages = -2 }, "concurrent_pages"},
		{"inverted delay", func(c *Config) { c.Scraper.DelayRange = DelayRange{Min: 5, Max: 1} }, "delay_range"},
		{"no retries", func(c *Config) { c.Scraper.MaxRetries = 0 }, "max_retries"},
		{"bad viewport", func(c *Config) { c.Browser.Viewport.Width = 0 }, "viewport"},
		{"site cap", func(c *Config) { c.MercadoLibre.MaxItems = 0 }, "mercadolibre.max_items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, models.ErrCodeInvalidConfig, models.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
