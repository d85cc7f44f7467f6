// Package cleaner turns detail-page markup into readable description text.
package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability text accepted as a
// description; anything shorter is usually a cookie banner or a nav bar.
const minContentLength = 80

// MainText runs Readability over a full detail page and returns the main
// article text with whitespace collapsed. ok is false when extraction failed
// or produced too little text.
func MainText(rawHTML, sourceURL string) (text string, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return "", false
	}

	text = strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < minContentLength {
		slog.Debug("readability: content too short", "url", sourceURL, "length", len(text))
		return "", false
	}
	return text, true
}
