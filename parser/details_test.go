package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/cache"
	"github.com/josequispe9/ScraperMELI-Linkedin/cleaner"
	"github.com/josequispe9/ScraperMELI-Linkedin/fetch"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNav struct {
	html    string
	navErr  error
	visited []string
}

func (f *fakeNav) Navigate(_ context.Context, url string) error {
	f.visited = append(f.visited, url)
	return f.navErr
}

func (f *fakeNav) HTML(context.Context) (string, error) { return f.html, nil }

type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return []byte(f.body), f.err
}

func newDetails(p Parser, f Fetcher) *Details {
	return &Details{
		Parser:   p,
		Cache:    cache.New(100, time.Hour),
		Fetcher:  f,
		Hosts:    fetch.NewHostMemory(time.Hour),
		Markdown: cleaner.NewMarkdown(),
	}
}

func TestDetailsBrowserPathAndCache(t *testing.T) {
	ff := &fakeFetcher{body: `<html><body><div id="root"></div></body></html>`}
	nav := &fakeNav{html: productDetailHTML}
	d := newDetails(fixedProductParser(), ff)
	ctx := context.Background()

	fields := d.ScrapeDetails(ctx, nav, "https://articulo.mercadolibre.com.ar/MLA-1")
	assert.Equal(t, "Marca: Samsung; Modelo: S24", fields[models.DetailSpecs])
	assert.Equal(t, "Monitor ideal para oficina.", fields[models.DetailDescription])
	assert.Equal(t, 1, ff.calls)
	assert.Len(t, nav.visited, 1)

	again := d.ScrapeDetails(ctx, nav, "https://articulo.mercadolibre.com.ar/MLA-1")
	assert.Equal(t, fields, again)
	assert.Len(t, nav.visited, 1, "second lookup served from cache")

	d.ScrapeDetails(ctx, nav, "https://articulo.mercadolibre.com.ar/MLA-2")
	assert.Equal(t, 1, ff.calls, "host remembered as browser-only")
	assert.Len(t, nav.visited, 2)
}

func TestDetailsHTTPPath(t *testing.T) {
	long := strings.Repeat("Monitor con panel IPS y excelente calidad de imagen. ", 10)
	body := strings.Replace(productDetailHTML, "Monitor ideal para oficina.", long, 1)
	ff := &fakeFetcher{body: body}
	nav := &fakeNav{}
	d := newDetails(fixedProductParser(), ff)

	fields := d.ScrapeDetails(context.Background(), nav, "https://articulo.mercadolibre.com.ar/MLA-3")
	assert.Equal(t, "SAMSUNG", fields[models.DetailSeller])
	assert.Contains(t, fields[models.DetailDescription], "panel IPS")
	assert.Empty(t, nav.visited)
}

func TestDetailsFetchErrorSkipsHTTPForHost(t *testing.T) {
	ff := &fakeFetcher{err: errors.New("remote error: tls: handshake failure")}
	nav := &fakeNav{html: productDetailHTML}
	d := newDetails(fixedProductParser(), ff)
	ctx := context.Background()

	first := d.ScrapeDetails(ctx, nav, "https://articulo.mercadolibre.com.ar/MLA-10")
	assert.Equal(t, "SAMSUNG", first[models.DetailSeller])
	assert.Equal(t, 1, ff.calls)

	d.ScrapeDetails(ctx, nav, "https://articulo.mercadolibre.com.ar/MLA-11")
	assert.Equal(t, 1, ff.calls, "second url on the host goes straight to the browser")
	assert.Len(t, nav.visited, 2)
}

func TestDetailsNeverFail(t *testing.T) {
	d := newDetails(fixedJobParser(), &fakeFetcher{err: errors.New("dial tcp: refused")})
	nav := &fakeNav{navErr: models.NewScrapeError(models.ErrCodeNavigationTimeout, "timeout", nil)}

	fields := d.ScrapeDetails(context.Background(), nav, "https://www.linkedin.com/jobs/view/1/")
	require.NotNil(t, fields)
	assert.Empty(t, fields)

	assert.Empty(t, d.ScrapeDetails(context.Background(), nav, ""))
	assert.Empty(t, d.ScrapeDetails(context.Background(), nil, "https://www.linkedin.com/jobs/view/2/"))
}

func TestDetailsMarkdownDescription(t *testing.T) {
	d := newDetails(fixedJobParser(), nil)
	fields := d.ScrapeDetails(context.Background(), &fakeNav{html: jobDetailHTML}, "https://www.linkedin.com/jobs/view/9/")

	desc := fields[models.DetailDescription]
	assert.Contains(t, desc, "**Python**")
	assert.Contains(t, desc, "- Django")
	assert.Equal(t, "Jornada completa · Intermedio", fields[models.DetailExperience])
}

func TestDetailsReadabilityFallback(t *testing.T) {
	para := strings.Repeat("Trabajarás con Python y Django en un equipo distribuido de producto. ", 6)
	page := `<html><head><title>Empleo</title></head><body>
		<div class="description__job-criteria-text">Senior</div>
		<article><h2>Acerca del empleo</h2><p>` + para + `</p><p>` + para + `</p></article>
		</body></html>`

	d := newDetails(fixedJobParser(), nil)
	fields := d.ScrapeDetails(context.Background(), &fakeNav{html: page}, "https://www.linkedin.com/jobs/view/10/")
	assert.Equal(t, "Senior", fields[models.DetailExperience])
	assert.Contains(t, fields[models.DetailDescription], "equipo distribuido")
}
