package locator

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}

func TestFallbackOrder(t *testing.T) {
	chain := MustChain("title", nil, ".a", ".b", ".c")

	tests := []struct {
		name     string
		html     string
		wantSel  string
		wantText string
	}{
		{"only middle matches", `<div><span class="b">B text</span></div>`, ".b", "B text"},
		{"middle and last match", `<div><span class="c">C</span><span class="b">B</span></div>`, ".b", "B"},
		{"first wins over later", `<div><span class="c">C</span><span class="a">A</span><span class="b">B</span></div>`, ".a", "A"},
		{"empty first falls through", `<div><span class="a">   </span><span class="c">C</span></div>`, ".c", "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FindFirstMatch(doc(t, tt.html), chain)
			require.True(t, m.Found())
			assert.Equal(t, tt.wantSel, m.Selector)
			assert.Equal(t, tt.wantText, m.Text())
		})
	}
}

func TestNoMatchIsExplicit(t *testing.T) {
	chain := MustChain("price", nil, ".x", ".y", ".z")
	m := FindFirstMatch(doc(t, `<div><p>nothing here</p></div>`), chain)

	assert.False(t, m.Found())
	assert.Equal(t, -1, m.Position)
	assert.Equal(t, "", m.Text())
	assert.Equal(t, "", m.Attr("href"))
}

func TestNilScope(t *testing.T) {
	assert.False(t, FindFirstMatch(nil, MustChain("x", nil, "a")).Found())
}

func TestChecksFilterElements(t *testing.T) {
	html := `<div>
		<a class="l" href="">empty</a>
		<a class="l" href="https://example.com/other">other</a>
		<a class="l" href="https://articulo.mercadolibre.com.ar/MLA-1">item</a>
	</div>`

	url := Attr(doc(t, html), MustChain("url", AttrContains("href", "mercadolibre"), "a.l"), "href")
	assert.Equal(t, "https://articulo.mercadolibre.com.ar/MLA-1", url)

	first := Attr(doc(t, html), MustChain("url", HasAttr("href"), "a.l"), "href")
	assert.Equal(t, "https://example.com/other", first)
}

func TestTextChecks(t *testing.T) {
	html := `<ul><li><span>ACME</span></li><li><span>Buenos Aires, Argentina</span></li></ul>`
	loc := Text(doc(t, html), MustChain("location", TextContains("argentina", "remoto"), "li span"))
	assert.Equal(t, "Buenos Aires, Argentina", loc)

	short := TextMatches(func(s string) bool { return len(s) < 5 })
	assert.Equal(t, "ACME", Text(doc(t, html), MustChain("company", short, "li span")))
}

func TestTextCollapsesWhitespace(t *testing.T) {
	m := FindFirstMatch(doc(t, "<h2 class='t'>\n  Monitor   24\n pulgadas </h2>"), MustChain("t", nil, "h2.t"))
	assert.Equal(t, "Monitor 24 pulgadas", m.Text())
}

func TestInvalidSelectorRejected(t *testing.T) {
	_, err := NewChain("broken", nil, "div[")
	assert.Error(t, err)
	_, err = NewChain("empty", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustChain("broken", nil, "::::") })
}

func TestSupportsHasAndContains(t *testing.T) {
	html := `<ul>
		<li><a href="/jobs/view/1"><span><strong>Go Dev</strong></span></a></li>
		<li><span>ad</span></li>
	</ul>`
	chain := MustChain("cards", func(*goquery.Selection) bool { return true },
		`ul li:has(a[href*="/jobs/view/"])`)
	m := FindFirstMatch(doc(t, html), chain)
	assert.Equal(t, 1, m.Selection.Length())

	c := MustChain("hace", nil, `span:contains("Hace")`)
	assert.Equal(t, "Hace 2 días", Text(doc(t, `<div><span>Hace 2 días</span></div>`), c))
}
