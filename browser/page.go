package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/ysmood/gson"
)

const (
	// actionTimeout bounds clicks and form input.
	actionTimeout = 10 * time.Second

	// scrollSettle lets lazy-loaded cards render after a scroll step.
	scrollSettle = 800 * time.Millisecond
)

// Page is a tab inside a Context. A Page is used by one goroutine at a time;
// the pool enforces that.
type Page struct {
	page    *rod.Page
	router  *rod.HijackRouter
	timeout time.Duration

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Navigate loads url and waits for the load event. Errors are categorized
// as NAVIGATION_TIMEOUT or NAVIGATION_FAILED.
func (p *Page) Navigate(ctx context.Context, url string) error {
	rp := p.page.Context(ctx).Timeout(p.timeout)
	if err := rp.Navigate(url); err != nil {
		return categorizeError(err, models.ErrCodeNavigationTimeout, "navigation to "+url+" failed")
	}
	if err := rp.WaitLoad(); err != nil {
		return categorizeError(err, models.ErrCodeNavigationTimeout, "waiting for load of "+url+" failed")
	}
	return nil
}

// WaitReady blocks until selector matches at least one element.
func (p *Page) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	rp := p.page.Context(ctx).Timeout(timeout)
	if err := rp.WaitElementsMoreThan(selector, 0); err != nil {
		return categorizeError(err, models.ErrCodeSelectorTimeout,
			fmt.Sprintf("selector %q not ready after %s", selector, timeout))
	}
	return nil
}

// HTML returns the rendered document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).Timeout(p.timeout).HTML()
	if err != nil {
		return "", categorizeError(err, models.ErrCodeNavigationTimeout, "failed to read page HTML")
	}
	return html, nil
}

// Advance scrolls one viewport down and, when loadMore is set and present,
// clicks it. A control with an href is pagination and Advance waits for the
// next document to load; any other control appends in place and Advance
// waits for the DOM to settle. A missing load-more control is not an error.
func (p *Page) Advance(ctx context.Context, loadMore string) error {
	rp := p.page.Context(ctx).Timeout(actionTimeout)

	height := 900
	if res, err := rp.Eval(`() => window.innerHeight`); err == nil {
		if h := res.Value.Int(); h > 0 {
			height = h
		}
	}
	if err := rp.Mouse.Scroll(0, float64(height), 4); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "scroll failed")
	}

	if loadMore != "" {
		if err := p.clickLoadMore(ctx, loadMore); err != nil {
			return err
		}
	}

	select {
	case <-time.After(scrollSettle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) clickLoadMore(ctx context.Context, selector string) error {
	rp := p.page.Context(ctx).Timeout(actionTimeout)
	has, el, err := rp.Has(selector)
	if err != nil || !has {
		return nil
	}
	if visible, _ := el.Visible(); !visible {
		return nil
	}

	href, _ := el.Attribute("href")
	if href != nil && *href != "" && *href != "#" {
		nav := p.page.Context(ctx).Timeout(p.timeout)
		wait := nav.WaitNavigation(proto.PageLifecycleEventNameLoad)
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return categorizeError(err, models.ErrCodeNavigation, fmt.Sprintf("click on %q failed", selector))
		}
		wait()
		return p.WaitLoad(ctx)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, fmt.Sprintf("click on %q failed", selector))
	}
	if err := rp.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not settle after load-more, proceeding", "selector", selector, "error", err)
	}
	return nil
}

// Fill types text into the first element matching selector.
func (p *Page) Fill(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Timeout(actionTimeout).Element(selector)
	if err != nil {
		return categorizeError(err, models.ErrCodeSelectorTimeout, fmt.Sprintf("element %q not found", selector))
	}
	if err := el.SelectAllText(); err != nil {
		slog.Debug("select text failed", "selector", selector, "error", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("browser: input into %q: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Timeout(actionTimeout).Element(selector)
	if err != nil {
		return categorizeError(err, models.ErrCodeSelectorTimeout, fmt.Sprintf("element %q not found", selector))
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %q: %w", selector, err)
	}
	return nil
}

// WaitLoad waits for the current document's load event.
func (p *Page) WaitLoad(ctx context.Context) error {
	if err := p.page.Context(ctx).Timeout(p.timeout).WaitLoad(); err != nil {
		return categorizeError(err, models.ErrCodeNavigationTimeout, "waiting for load failed")
	}
	return nil
}

// URL returns the current location, "" if the target is gone.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// localStorage returns the page's origin and its localStorage entries.
func (p *Page) localStorage(ctx context.Context) (OriginState, error) {
	res, err := p.page.Context(ctx).Timeout(actionTimeout).Eval(`() => ({
		origin: location.origin,
		items: Object.entries(localStorage).map(([name, value]) => ({name, value})),
	})`)
	if err != nil {
		return OriginState{}, err
	}
	var out struct {
		Origin string      `json:"origin"`
		Items  []NameValue `json:"items"`
	}
	if err := res.Value.Unmarshal(&out); err != nil {
		return OriginState{}, err
	}
	return OriginState{Origin: out.Origin, LocalStorage: out.Items}, nil
}

// Closed reports whether the page was closed here or its target went away
// (tab crash, browser exit).
func (p *Page) Closed() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return true
	}
	if _, err := p.page.Info(); err != nil {
		return true
	}
	return false
}

// Close stops the hijack router and closes the tab. Safe to call twice.
func (p *Page) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		if p.router != nil {
			_ = p.router.Stop()
		}
		err = p.page.Close()
	})
	return err
}

// toHeadersMap converts a plain map to the CDP header type.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod errors into ScrapeErrors. Deadline expiry
// maps to timeoutCode; cancellation is passed through so it stays
// non-retryable.
func categorizeError(err error, timeoutCode, msg string) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(timeoutCode, msg, err)
	default:
		var nav *rod.NavigationError
		if errors.As(err, &nav) {
			return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
		}
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return models.NewScrapeError(models.ErrCodeSelectorTimeout, msg, err)
		}
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
