package site

import (
	"net/url"
	"strings"

	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
)

const meliListing = "https://listado.mercadolibre.com.ar"

// MercadoLibre returns the product search adapter.
func MercadoLibre(cfg config.SiteConfig) *Site {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = meliListing
	}

	s := &Site{
		Name: "mercadolibre",
		SearchURL: func(term string) string {
			slug := strings.Join(strings.Fields(strings.ToLower(term)), "-")
			return base + "/" + url.PathEscape(slug)
		},
		ReadySelector:    `.ui-search-layout__item, .poly-card`,
		LoadMoreSelector: `li.andes-pagination__button--next a, a.andes-pagination__link[title="Siguiente"]`,
		Parser:           parser.NewProductParser(),
		BlockMarkers: []string{
			"robot",
			"captcha",
			"blocked",
			"demasiadas solicitudes",
		},
		MinBodyText: 200,
	}
	return fromConfig(s, cfg)
}
