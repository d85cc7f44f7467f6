package locator

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Check is the content-sanity test an element must pass to count as a match.
type Check func(s *goquery.Selection) bool

// Chain is an ordered list of selectors for one logical field. The order
// encodes preference: currently known-good and specific selectors first,
// older or looser fallbacks last.
type Chain struct {
	Name      string
	selectors []string
	matchers  []cascadia.Selector
	check     Check
}

// NewChain compiles the selectors up front. A nil check means NonEmptyText.
func NewChain(name string, check Check, selectors ...string) (*Chain, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("locator: chain %q has no selectors", name)
	}
	if check == nil {
		check = NonEmptyText
	}
	c := &Chain{Name: name, check: check, selectors: selectors}
	for _, sel := range selectors {
		m, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("locator: chain %q: invalid selector %q: %w", name, sel, err)
		}
		c.matchers = append(c.matchers, m)
	}
	return c, nil
}

// MustChain is NewChain for package-level chain tables; it panics on an
// invalid selector so broken chains fail at startup.
func MustChain(name string, check Check, selectors ...string) *Chain {
	c, err := NewChain(name, check, selectors...)
	if err != nil {
		panic(err)
	}
	return c
}

// NonEmptyText accepts elements with non-whitespace text.
func NonEmptyText(s *goquery.Selection) bool {
	return strings.TrimSpace(s.Text()) != ""
}

// HasAttr accepts elements carrying a non-empty attribute.
func HasAttr(name string) Check {
	return func(s *goquery.Selection) bool {
		v, ok := s.Attr(name)
		return ok && strings.TrimSpace(v) != ""
	}
}

// AttrContains accepts elements whose attribute contains sub.
func AttrContains(name, sub string) Check {
	return func(s *goquery.Selection) bool {
		v, ok := s.Attr(name)
		return ok && strings.Contains(v, sub)
	}
}

// TextContains accepts elements whose lower-cased text contains any of the
// given lower-case fragments.
func TextContains(fragments ...string) Check {
	return func(s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		for _, f := range fragments {
			if strings.Contains(text, f) {
				return true
			}
		}
		return false
	}
}

// TextMatches accepts elements whose trimmed text satisfies pred.
func TextMatches(pred func(string) bool) Check {
	return func(s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		return text != "" && pred(text)
	}
}
