// Package locator finds elements through ordered selector chains so that
// extraction survives markup drift on the target sites.
package locator

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Match is the result of FindFirstMatch. The zero value (and NoMatch) means
// no selector in the chain produced a usable element; callers treat that as
// an expected outcome, not a failure.
type Match struct {
	// Selection holds the matched elements that passed the chain's check.
	Selection *goquery.Selection

	// Selector is the chain entry that matched.
	Selector string

	// Position is the index of Selector in the chain, -1 for no match.
	Position int
}

// NoMatch is the explicit "nothing matched" result.
var NoMatch = Match{Position: -1}

// Found reports whether the match holds at least one element.
func (m Match) Found() bool {
	return m.Selection != nil && m.Selection.Length() > 0
}

// Text returns the whitespace-collapsed text of the first matched element.
func (m Match) Text() string {
	if !m.Found() {
		return ""
	}
	return collapse(m.Selection.First().Text())
}

// Attr returns the trimmed attribute of the first matched element.
func (m Match) Attr(name string) string {
	if !m.Found() {
		return ""
	}
	v, _ := m.Selection.First().Attr(name)
	return strings.TrimSpace(v)
}

// FindFirstMatch tries each selector of chain against scope in order and
// returns the first non-empty result whose elements pass the chain's check.
// Elements failing the check are filtered out; a selector whose elements all
// fail is skipped. Later selectors are never evaluated once one matches.
func FindFirstMatch(scope *goquery.Selection, chain *Chain) Match {
	if scope == nil || chain == nil {
		return NoMatch
	}
	for i, m := range chain.matchers {
		found := scope.FindMatcher(m)
		if found.Length() == 0 {
			continue
		}
		usable := found.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return chain.check(s)
		})
		if usable.Length() > 0 {
			return Match{Selection: usable, Selector: chain.selectors[i], Position: i}
		}
	}
	return NoMatch
}

// Text is FindFirstMatch followed by Match.Text.
func Text(scope *goquery.Selection, chain *Chain) string {
	return FindFirstMatch(scope, chain).Text()
}

// Attr is FindFirstMatch followed by Match.Attr.
func Attr(scope *goquery.Selection, chain *Chain, name string) string {
	return FindFirstMatch(scope, chain).Attr(name)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
