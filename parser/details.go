package parser

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/cache"
	"github.com/josequispe9/ScraperMELI-Linkedin/cleaner"
	"github.com/josequispe9/ScraperMELI-Linkedin/fetch"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Navigator is the slice of a browser page the detail scraper needs.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
}

// Fetcher fetches a page over plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Details runs the second-phase detail scrape for one site.
//
// Lookup order: run cache, then a plain HTTP fetch (skipped for hosts known
// to need JavaScript), then the browser page. Every stage is optional
// except Parser.
type Details struct {
	Parser   Parser
	Cache    *cache.Cache
	Fetcher  Fetcher
	Hosts    *fetch.HostMemory
	Markdown *cleaner.Markdown
	Logger   *slog.Logger
}

// ScrapeDetails never fails: problems are logged and an empty (non-nil)
// map is returned.
func (d *Details) ScrapeDetails(ctx context.Context, page Navigator, url string) map[string]string {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	if url == "" {
		return map[string]string{}
	}
	if d.Cache != nil {
		if fields, ok := d.Cache.Get(url); ok {
			log.Debug("detail cache hit", "url", url)
			return fields
		}
	}

	fields, ok := d.viaHTTP(ctx, url, log)
	if !ok {
		if page == nil {
			return map[string]string{}
		}
		var err error
		fields, err = d.viaBrowser(ctx, page, url)
		if err != nil {
			log.Warn("detail scrape failed",
				"code", models.ErrCodeDetailScrape,
				"url", url,
				"error", err,
			)
			return map[string]string{}
		}
	}

	if d.Cache != nil && len(fields) > 0 {
		d.Cache.Set(url, fields)
	}
	return fields
}

// viaHTTP returns ok=false when the browser must be used instead.
func (d *Details) viaHTTP(ctx context.Context, url string, log *slog.Logger) (map[string]string, bool) {
	if d.Fetcher == nil || (d.Hosts != nil && d.Hosts.BrowserOnly(url)) {
		return nil, false
	}
	body, err := d.Fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			d.markBrowserOnly(url)
		}
		log.Debug("detail http fetch failed", "url", url, "error", err)
		return nil, false
	}
	if fetch.NeedsBrowser(body) {
		d.markBrowserOnly(url)
		return nil, false
	}

	fields, err := d.parse(string(body), url)
	if err != nil || len(fields) == 0 {
		// Served HTML without the detail blocks, usually an auth wall.
		log.Debug("http detail page has no detail blocks", "url", url, "title", fetch.Title(body))
		d.markBrowserOnly(url)
		return nil, false
	}
	log.Debug("detail fetched over http", "url", url, "fields", len(fields))
	return fields, true
}

func (d *Details) viaBrowser(ctx context.Context, page Navigator, url string) (map[string]string, error) {
	if err := page.Navigate(ctx, url); err != nil {
		return nil, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return d.parse(html, url)
}

func (d *Details) parse(html, url string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	fields, descHTML := d.Parser.ParseDetails(doc)

	if descHTML != "" && d.Markdown != nil {
		if md, err := d.Markdown.Convert(descHTML, d.Parser.BaseURL()); err == nil && md != "" {
			fields[models.DetailDescription] = md
		}
	}
	if fields[models.DetailDescription] == "" && len(fields) > 0 {
		if text, ok := cleaner.MainText(html, url); ok {
			fields[models.DetailDescription] = text
		}
	}
	return fields, nil
}

func (d *Details) markBrowserOnly(url string) {
	if d.Hosts != nil {
		d.Hosts.MarkBrowserOnly(url)
	}
}
