package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainText(t *testing.T) {
	para := strings.Repeat("Buscamos una persona desarrolladora Go con experiencia en servicios distribuidos. ", 6)
	page := `<html><head><title>Go Developer</title></head><body>
		<nav><a href="/">Inicio</a></nav>
		<article><h1>Go Developer</h1><p>` + para + `</p><p>` + para + `</p></article>
		<footer>Todos los derechos reservados</footer></body></html>`

	text, ok := MainText(page, "https://www.linkedin.com/jobs/view/1")
	require.True(t, ok)
	assert.Contains(t, text, "desarrolladora Go")
	assert.NotContains(t, text, "  ")

	_, ok = MainText("<html><body><p>corto</p></body></html>", "https://example.com")
	assert.False(t, ok)
}

func TestMarkdownConvert(t *testing.T) {
	md := NewMarkdown()

	tests := []struct {
		name     string
		html     string
		contains []string
	}{
		{"list", `<ul><li>Python</li><li>SQL</li></ul>`, []string{"- Python", "- SQL"}},
		{"relative link", `<p><a href="/ayuda">ayuda</a></p>`, []string{"(https://www.mercadolibre.com.ar/ayuda)"}},
		{"script dropped", `<p>texto</p><script>alert(1)</script>`, []string{"texto"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := md.Convert(tt.html, "https://www.mercadolibre.com.ar")
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
			assert.NotContains(t, out, "alert")
		})
	}

	out, err := md.Convert("   ", "")
	require.NoError(t, err)
	assert.Empty(t, out)
}
