package parser

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes to NFC and collapses whitespace.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold lower-cases s and strips diacritics, for keyword matching only.
func Fold(s string) string {
	// transform chains carry state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// containsAny reports whether the folded text contains any folded keyword.
func containsAny(text string, keywords ...string) bool {
	folded := Fold(text)
	for _, k := range keywords {
		if strings.Contains(folded, Fold(k)) {
			return true
		}
	}
	return false
}

var (
	reNonPrice  = regexp.MustCompile(`[^\d.,]`)
	rePriceText = regexp.MustCompile(`\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	reHasDigit  = regexp.MustCompile(`\d`)
)

// CleanPrice keeps digits and separators and prefixes "$". The value stays
// text; numeric parsing belongs to downstream analytics.
func CleanPrice(s string) string {
	cleaned := strings.Trim(reNonPrice.ReplaceAllString(s, ""), ".,")
	if cleaned == "" {
		return ""
	}
	return "$" + cleaned
}

// PriceFromText finds the first "$ 1.234" amount in free text.
func PriceFromText(s string) string {
	m := rePriceText.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return "$" + m[1]
}

// AbsoluteURL resolves href against base. Empty or unparsable input yields "".
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// StripQuery drops the query string and fragment, which on listing sites
// only carry tracking parameters.
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Truncate cuts s to max runes, appending "..." when it was longer.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}

var locationKeywords = []string{
	"argentina", "buenos aires", "comuna", "remoto",
	"híbrido", "presencial", "provincia", "ciudad",
}

// IsLocationText reports whether s reads like a job location.
func IsLocationText(s string) bool {
	return containsAny(s, locationKeywords...)
}

// InferModality derives the work mode from a location string.
func InferModality(location string) string {
	switch {
	case containsAny(location, "remoto", "remote", "teletrabajo"):
		return "Remoto"
	case containsAny(location, "híbrido", "hybrid"):
		return "Híbrido"
	case containsAny(location, "presencial", "on-site", "onsite"):
		return "Presencial"
	default:
		return ""
	}
}
