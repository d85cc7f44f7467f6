package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown renders description blocks (bullet lists, characteristics tables) as
// Markdown. It is safe for concurrent use.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown builds the converter once; it is reused for every record.
func NewMarkdown() *Markdown {
	return &Markdown{conv: converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)}
}

// Convert renders htmlContent, resolving relative links against domain.
// Empty input yields "".
func (m *Markdown) Convert(htmlContent, domain string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}
	out, err := m.conv.ConvertString(htmlContent, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
