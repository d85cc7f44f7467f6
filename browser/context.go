package browser

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Context is an isolated (incognito) browser context: its own cookies,
// storage and cache, a fixed user agent and viewport.
type Context struct {
	m         *Manager
	b         *rod.Browser
	userAgent string
	seed      *StorageState

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

// UserAgent is the user agent every page of the context presents.
func (c *Context) UserAgent() string { return c.userAgent }

// NewPage opens a tab prepared for scraping.
//
// Order matters: stealth, overrides and the hijack router must be in place
// before the first navigation.
func (c *Context) NewPage(ctx context.Context) (*Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "context is closed", nil)
	}

	// ── 1. Create target ─────────────────────────────────────────────
	rp, err := c.b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}
	rp = rp.Context(context.Background())

	// ── 2. Stealth injection ─────────────────────────────────────────
	if _, err := rp.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	// ── 3. User agent, language and viewport ─────────────────────────
	locale := c.m.cfg.Locale
	_ = proto.NetworkSetUserAgentOverride{
		UserAgent:      c.userAgent,
		AcceptLanguage: locale,
	}.Call(rp)
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": acceptLanguage(locale)}),
	}.Call(rp)
	if err := rp.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.m.cfg.Viewport.Width,
		Height:            c.m.cfg.Viewport.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}

	// ── 4. Seed localStorage from the loaded session ─────────────────
	if js := seedScript(c.seed); js != "" {
		if _, err := rp.EvalOnNewDocument(js); err != nil {
			slog.Warn("localStorage seeding failed", "error", err)
		}
	}

	// ── 5. Resource blocking ─────────────────────────────────────────
	router := mountHijack(rp, c.m.blocker)

	p := &Page{page: rp, router: router, timeout: c.m.cfg.Timeout()}
	c.mu.Lock()
	c.pages = append(c.pages, p)
	c.mu.Unlock()
	return p, nil
}

// StorageState snapshots cookies and the localStorage of every open page,
// layered over the state the context was created from.
func (c *Context) StorageState(ctx context.Context) (*StorageState, error) {
	cookies, err := c.b.Context(ctx).GetCookies()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to read cookies", err)
	}

	c.mu.Lock()
	pages := append([]*Page(nil), c.pages...)
	c.mu.Unlock()

	var fresh []OriginState
	for _, p := range pages {
		if p.Closed() {
			continue
		}
		o, err := p.localStorage(ctx)
		if err != nil || o.Origin == "" || o.Origin == "null" {
			continue
		}
		fresh = append(fresh, o)
	}

	var base []OriginState
	if c.seed != nil {
		base = c.seed.Origins
	}
	return &StorageState{
		Cookies: cookiesFromProto(cookies),
		Origins: mergeOrigins(base, fresh),
	}, nil
}

// Close closes every page and disposes the browser context.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pages := c.pages
	c.pages = nil
	c.mu.Unlock()

	for _, p := range pages {
		_ = p.Close()
	}
	return proto.TargetDisposeBrowserContext{BrowserContextID: c.b.BrowserContextID}.Call(c.m.browser)
}

// seedScript returns a document script that restores localStorage for the
// page's origin, "" when there is nothing to restore.
func seedScript(st *StorageState) string {
	if st == nil || len(st.Origins) == 0 {
		return ""
	}
	byOrigin := make(map[string]map[string]string, len(st.Origins))
	for _, o := range st.Origins {
		items := make(map[string]string, len(o.LocalStorage))
		for _, kv := range o.LocalStorage {
			items[kv.Name] = kv.Value
		}
		byOrigin[o.Origin] = items
	}
	data, err := json.Marshal(byOrigin)
	if err != nil {
		return ""
	}
	return `(() => {
		const state = ` + string(data) + `;
		const items = state[location.origin];
		if (!items) return;
		try {
			for (const [k, v] of Object.entries(items)) {
				if (localStorage.getItem(k) === null) localStorage.setItem(k, v);
			}
		} catch (e) {}
	})()`
}

// acceptLanguage expands a locale like "es-AR" into a header value.
func acceptLanguage(locale string) string {
	if locale == "" {
		return "es-AR,es;q=0.9,en;q=0.8"
	}
	lang := locale
	for i, r := range locale {
		if r == '-' || r == '_' {
			lang = locale[:i]
			break
		}
	}
	if lang == locale {
		return locale + ",en;q=0.8"
	}
	return locale + "," + lang + ";q=0.9,en;q=0.8"
}
