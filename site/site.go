// Package site describes the two scraped sites: where to search, what marks
// a rendered results page, how to load more results and how a block page
// looks.
package site

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
)

// Site is a search adapter consumed by the orchestrator.
type Site struct {
	Name string

	// SearchURL builds the results URL for a term.
	SearchURL func(term string) string

	// ReadySelector matches once the results have rendered.
	ReadySelector string

	// LoadMoreSelector is clicked after each scroll when present.
	LoadMoreSelector string

	Parser parser.Parser

	// Limits copied from the site config.
	SearchTerms     []string
	MaxItemsPerTerm int
	MaxItems        int
	DetailLimit     int

	// BlockMarkers are lower-case fragments of anti-bot pages.
	BlockMarkers []string

	// MinBodyText is the visible text below which an empty results page is
	// considered blocked; 0 disables the check.
	MinBodyText int

	LoginURL         string
	StorageStatePath string
}

// Blocked reports whether a snapshot without listing cards is an anti-bot
// page. A page that produced candidates is never treated as blocked.
func (s *Site) Blocked(doc *goquery.Document, candidates int) bool {
	if candidates > 0 || doc == nil {
		return false
	}
	text := visibleText(doc)
	if s.MinBodyText > 0 && len(text) < s.MinBodyText {
		return true
	}
	folded := parser.Fold(text)
	for _, m := range s.BlockMarkers {
		if strings.Contains(folded, parser.Fold(m)) {
			return true
		}
	}
	return false
}

func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// fromConfig copies the shared limits.
func fromConfig(s *Site, cfg config.SiteConfig) *Site {
	s.SearchTerms = append([]string(nil), cfg.SearchTerms...)
	s.MaxItemsPerTerm = cfg.MaxItemsPerTerm
	s.MaxItems = cfg.MaxItems
	s.DetailLimit = cfg.DetailLimit
	s.StorageStatePath = cfg.StorageStatePath
	return s
}
