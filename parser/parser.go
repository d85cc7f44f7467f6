// Package parser turns listing markup into validated records.
//
// Parsers work on goquery snapshots of the rendered page rather than on live
// browser handles: a snapshot is taken once per extraction pass and every
// field chain is then evaluated locally.
package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/locator"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Parser extracts one site's records.
type Parser interface {
	// Site names the site ("linkedin", "mercadolibre").
	Site() string

	// Containers is the chain locating listing cards on a results page.
	Containers() *locator.Chain

	// BaseURL resolves relative links found on the site.
	BaseURL() string

	// ParseElement builds a record from one listing card. It returns false
	// when the card lacks the minimum fields; that is an expected outcome and
	// never an error.
	ParseElement(el *goquery.Selection, index int, term string) (models.Record, bool)

	// ParseDetails extracts detail-page fields. descHTML is the raw markup
	// of the description block, "" when none was located.
	ParseDetails(doc *goquery.Document) (fields map[string]string, descHTML string)
}

// FindCandidateElements returns up to max listing cards from doc using the
// parser's container chain. No match yields nil.
func FindCandidateElements(doc *goquery.Document, p Parser, max int) []*goquery.Selection {
	if doc == nil || max <= 0 {
		return nil
	}
	m := locator.FindFirstMatch(doc.Selection, p.Containers())
	if !m.Found() {
		return nil
	}

	out := make([]*goquery.Selection, 0, min(max, m.Selection.Length()))
	m.Selection.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = append(out, s)
		return len(out) < max
	})
	return out
}

// text runs a chain and normalizes the result.
func text(scope *goquery.Selection, chain *locator.Chain) string {
	return CleanText(locator.Text(scope, chain))
}

// anyCheck accepts every element; used for chains where presence is enough.
func anyCheck(*goquery.Selection) bool { return true }
