package site

import (
	"net/url"
	"strings"

	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
)

const linkedInSearch = "https://www.linkedin.com/jobs/search/"

// LinkedIn returns the job search adapter.
func LinkedIn(cfg config.SiteConfig) *Site {
	base := cfg.BaseURL
	if base == "" {
		base = linkedInSearch
	}
	location := cfg.Location

	s := &Site{
		Name: "linkedin",
		SearchURL: func(term string) string {
			q := url.Values{}
			q.Set("keywords", strings.TrimSpace(term))
			if location != "" {
				q.Set("location", location)
			}
			return base + "?" + q.Encode()
		},
		ReadySelector:    `a[href*="/jobs/view/"]`,
		LoadMoreSelector: `button.infinite-scroller__show-more-button, button[aria-label="Ver más empleos"], button[aria-label="See more jobs"]`,
		Parser:           parser.NewJobParser(),
		BlockMarkers: []string{
			"security verification",
			"verificación de seguridad",
			"let's do a quick security check",
			"captcha",
		},
		LoginURL: "https://www.linkedin.com/login",
	}
	return fromConfig(s, cfg)
}
