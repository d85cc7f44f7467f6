package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/browser"
	"github.com/josequispe9/ScraperMELI-Linkedin/cache"
	"github.com/josequispe9/ScraperMELI-Linkedin/cleaner"
	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/josequispe9/ScraperMELI-Linkedin/engine"
	"github.com/josequispe9/ScraperMELI-Linkedin/export"
	"github.com/josequispe9/ScraperMELI-Linkedin/fetch"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
	"github.com/josequispe9/ScraperMELI-Linkedin/pool"
	"github.com/josequispe9/ScraperMELI-Linkedin/secrets"
	"github.com/josequispe9/ScraperMELI-Linkedin/site"
	"github.com/josequispe9/ScraperMELI-Linkedin/store"
	"github.com/josequispe9/ScraperMELI-Linkedin/webhook"
)

const (
	testModeItems  = 10
	detailCacheTTL = time.Hour
	hostMemoryTTL  = 24 * time.Hour
)

// page is a browser tab usable both for scraping and for the login form.
type page interface {
	engine.Page
	site.LoginPage
}

// session is one browser process with one isolated context.
type session interface {
	NewPage(ctx context.Context) (page, error)
	SaveSession(ctx context.Context, path string) error

	// UserAgent is presented by every page; detail fetches over HTTP reuse it.
	UserAgent() string

	Close() error
}

// launchFunc starts a session whose context is restored from statePath.
type launchFunc func(ctx context.Context, cfg *config.Config, statePath string) (session, error)

type app struct {
	launch launchFunc
	in     io.Reader
	out    io.Writer
}

// run executes one scrape of siteName and maps the outcome to an exit code.
func (a *app) run(ctx context.Context, cfg *config.Config, siteName string, f *siteFlags) error {
	// ── 1. Resolve site and overrides ─────────────────────────────────
	var (
		s       *site.Site
		siteCfg config.SiteConfig
	)
	switch siteName {
	case "linkedin":
		siteCfg = cfg.LinkedIn
		s = site.LinkedIn(siteCfg)
	default:
		siteCfg = cfg.MercadoLibre
		s = site.MercadoLibre(siteCfg)
	}
	terms := applyOverrides(s, f)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return &exitError{code: exitInvalid, err: err}
	}
	if len(terms) == 0 {
		err := models.NewScrapeError(models.ErrCodeInvalidInput, "no search terms configured", nil)
		return &exitError{code: exitInvalid, err: err}
	}

	log := slog.With("site", s.Name)
	log.Info("scraper starting",
		"terms", terms,
		"maxItems", s.MaxItems,
		"concurrentPages", cfg.Scraper.ConcurrentPages,
		"test", f.test,
	)

	// ── 2. Launch browser ─────────────────────────────────────────────
	sess, err := a.launch(ctx, cfg, s.StorageStatePath)
	if err != nil {
		log.Error("browser launch failed", "code", models.CodeOf(err), "error", err)
		summary := models.RunSummary{
			Site:    s.Name,
			Errors:  []string{err.Error()},
			PerTerm: map[string]int{},
		}
		a.notify(ctx, cfg, summary)
		return &exitError{code: exitFailed, err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("browser close failed", "error", err)
		}
	}()

	// ── 3. Page pool ──────────────────────────────────────────────────
	pages := pool.New[engine.Page](func(ctx context.Context) (engine.Page, error) {
		p, err := sess.NewPage(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	}, pool.Options{ReplaceClosed: cfg.Pool.ReplaceClosed})
	if err := pages.Initialize(ctx, cfg.Scraper.ConcurrentPages); err != nil {
		log.Error("page pool initialization failed", "error", err)
		return &exitError{code: exitFailed, err: err}
	}
	defer pages.CloseAll()

	// ── 4. Login (sites with a login flow and no saved session) ───────
	a.login(ctx, sess, pages, s, siteCfg)

	// ── 5. Scrape ─────────────────────────────────────────────────────
	details := newDetails(cfg, s, sess.UserAgent())
	if hf, ok := details.Fetcher.(*fetch.Fetcher); ok {
		defer hf.Close()
	}
	delayMin, delayMax := cfg.Scraper.DelayRange.Bounds()
	orch := engine.New(s, pages, details, engine.Options{
		ConcurrentPages:      cfg.Scraper.ConcurrentPages,
		DelayMin:             delayMin,
		DelayMax:             delayMax,
		ReadyTimeout:         cfg.Scraper.ReadyTimeout(),
		StagnationPasses:     cfg.Scraper.StagnationPasses,
		MaxAttempts:          cfg.Scraper.MaxRetries,
		BackoffBase:          cfg.Scraper.BackoffBase(),
		BackoffFactor:        cfg.Scraper.BackoffFactor,
		NavigationsPerSecond: cfg.Scraper.NavigationsPerSecond,
		Logger:               log,
	})
	res := orch.Run(ctx, terms)

	if s.StorageStatePath != "" && s.LoginURL != "" {
		if err := sess.SaveSession(context.WithoutCancel(ctx), s.StorageStatePath); err != nil {
			log.Warn("session save failed", "error", err)
		}
	}

	// ── 6. History ────────────────────────────────────────────────────
	stored := 0
	if cfg.Store.Path != "" {
		res.Summary.NewItems, stored = saveHistory(context.WithoutCancel(ctx), cfg, s.Name, res.Records)
	}

	// ── 7. Export ─────────────────────────────────────────────────────
	exportErr := exportResult(cfg.Export.Dir, s.Name, res)

	// ── 8. Notify ─────────────────────────────────────────────────────
	a.notify(ctx, cfg, res.Summary)

	ps := pages.Stats()
	log.Info("scraper finished",
		"success", res.Summary.Success,
		"items", res.Summary.ItemCount,
		"newItems", res.Summary.NewItems,
		"storedItems", stored,
		"errors", len(res.Summary.Errors),
		"pages", ps.Size,
		"pageCapacity", ps.Capacity,
		"elapsedMs", res.Summary.ElapsedMs,
	)

	switch {
	case !res.Summary.Success:
		return &exitError{code: exitFailed, err: fmt.Errorf("run failed: %v", res.Summary.Errors)}
	case exportErr != nil:
		return &exitError{code: exitFailed, err: exportErr}
	}
	return nil
}

// applyOverrides applies the command flags to s and returns the terms to
// run.
func applyOverrides(s *site.Site, f *siteFlags) []string {
	terms := s.SearchTerms
	if len(f.terms) > 0 {
		terms = f.terms
	}
	if f.maxItems > 0 {
		s.MaxItems = f.maxItems
	}
	if f.test {
		if len(terms) > 1 {
			terms = terms[:1]
		}
		s.MaxItems = min(positive(s.MaxItems, testModeItems), testModeItems)
		s.MaxItemsPerTerm = min(positive(s.MaxItemsPerTerm, testModeItems), testModeItems)
		s.DetailLimit = min(s.DetailLimit, 2)
	}
	return terms
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// login signs in when the site has a login flow, credentials are available
// and no saved session exists. Failure is logged and the run continues as a
// guest.
func (a *app) login(ctx context.Context, sess session, pages *pool.Pool[engine.Page], s *site.Site, cfg config.SiteConfig) {
	if s.LoginURL == "" || cfg.Email == "" {
		return
	}
	if s.StorageStatePath != "" {
		if _, err := os.Stat(s.StorageStatePath); err == nil {
			slog.Debug("reusing saved session", "site", s.Name, "path", s.StorageStatePath)
			return
		}
	}
	password, err := secrets.Password(cfg)
	if err != nil {
		slog.Warn("skipping login", "site", s.Name, "error", err)
		return
	}

	pg, err := pages.Get(ctx)
	if err != nil {
		slog.Warn("skipping login: no page", "site", s.Name, "error", err)
		return
	}
	defer pages.Put(pg)

	lp, ok := pg.(site.LoginPage)
	if !ok {
		return
	}
	if err := site.Login(ctx, lp, s, site.Credentials{Email: cfg.Email, Password: password}); err != nil {
		slog.Warn("login failed, continuing as guest", "site", s.Name, "code", models.CodeOf(err), "error", err)
		return
	}
	if s.StorageStatePath != "" {
		if err := sess.SaveSession(ctx, s.StorageStatePath); err != nil {
			slog.Warn("session save failed", "site", s.Name, "error", err)
		}
	}
}

func newDetails(cfg *config.Config, s *site.Site, userAgent string) *parser.Details {
	d := &parser.Details{
		Parser:   s.Parser,
		Cache:    cache.New(1000, detailCacheTTL),
		Hosts:    fetch.NewHostMemory(hostMemoryTTL),
		Markdown: cleaner.NewMarkdown(),
		Logger:   slog.With("site", s.Name, "component", "details"),
	}
	if cfg.Scraper.HTTPDetails {
		d.Fetcher = fetch.New(fetch.Options{
			Proxy:     cfg.Browser.Proxy,
			UserAgent: userAgent,
			Timeout:   cfg.Browser.Timeout(),
		})
	}
	return d
}

// saveHistory stores records and returns how many were new and how many the
// site has in total.
func saveHistory(ctx context.Context, cfg *config.Config, siteName string, records []models.Record) (added, total int) {
	db, err := store.Open(ctx, cfg.Store.Path, cfg.Scraper.BatchSize)
	if err != nil {
		slog.Warn("history store unavailable", "path", cfg.Store.Path, "error", err)
		return 0, 0
	}
	defer db.Close()

	added, err = db.SaveRecords(ctx, siteName, records)
	if err != nil {
		slog.Warn("history save failed", "path", cfg.Store.Path, "error", err)
	}
	total, err = db.Count(ctx, siteName)
	if err != nil {
		slog.Warn("history count failed", "path", cfg.Store.Path, "error", err)
	}
	return added, total
}

func exportResult(dir, siteName string, res *engine.Result) error {
	w, err := export.Open(dir)
	if err != nil {
		slog.Error("export failed", "dir", dir, "error", err)
		return err
	}
	defer w.Close()

	var errs []error
	if _, err := w.WriteCSV(siteName, res.Records); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.WriteSummary(siteName, res.Summary); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("export failed", "dir", dir, "error", err)
		return err
	}
	return nil
}

func (a *app) notify(ctx context.Context, cfg *config.Config, summary models.RunSummary) {
	if cfg.Webhook.URL == "" {
		return
	}
	_ = webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret).Notify(context.WithoutCancel(ctx), summary)
}

// browserSession is the session backed by a real browser.
type browserSession struct {
	m *browser.Manager
	c *browser.Context
}

func launchBrowser(ctx context.Context, cfg *config.Config, statePath string) (session, error) {
	m := browser.NewManager(cfg.Browser, cfg.Scraper)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	c, err := m.CreateContext(ctx, statePath)
	if err != nil {
		_ = m.Close()
		return nil, models.NewScrapeError(models.ErrCodeLaunch, "browser context", err)
	}
	return &browserSession{m: m, c: c}, nil
}

func (b *browserSession) NewPage(ctx context.Context) (page, error) {
	p, err := b.c.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (b *browserSession) SaveSession(ctx context.Context, path string) error {
	return b.m.SaveSession(ctx, b.c, path)
}

func (b *browserSession) UserAgent() string { return b.c.UserAgent() }

func (b *browserSession) Close() error { return b.m.Close() }
