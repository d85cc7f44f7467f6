// Package browser owns the Chromium process: launch with anti-detection
// flags, isolated contexts with their own identity and session, and the
// pages handed to the page pool.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Manager manages the browser lifecycle. No context outlives it: Close
// closes every context before the process.
type Manager struct {
	cfg     config.BrowserConfig
	blocker blocker

	launcher *launcher.Launcher
	browser  *rod.Browser

	mu        sync.Mutex
	contexts  []*Context
	closeOnce sync.Once
	closeErr  error
}

// NewManager prepares a manager; nothing is launched until Start.
func NewManager(bcfg config.BrowserConfig, scfg config.ScraperConfig) *Manager {
	return &Manager{
		cfg:     bcfg,
		blocker: newBlocker(scfg.BlockedResources, scfg.BlockAds),
	}
}

// Start launches the browser. Any failure is a LAUNCH_FAILED ScrapeError.
func (m *Manager) Start(ctx context.Context) error {
	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox)

	if m.cfg.BrowserBin != "" {
		l = l.Bin(m.cfg.BrowserBin)
	}
	if m.cfg.Proxy != "" {
		l = l.Proxy(m.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-default-browser-check"))
	if m.cfg.Viewport.Width > 0 && m.cfg.Viewport.Height > 0 {
		l.Set(flags.Flag("window-size"), strconv.Itoa(m.cfg.Viewport.Width)+","+strconv.Itoa(m.cfg.Viewport.Height))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewScrapeError(models.ErrCodeLaunch, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", m.cfg.Headless)

	b := rod.New().ControlURL(controlURL)
	if d := m.cfg.SlowMo(); d > 0 {
		b = b.SlowMotion(d)
	}
	if err := b.Context(ctx).Connect(); err != nil {
		l.Kill()
		return models.NewScrapeError(models.ErrCodeLaunch, "failed to connect to browser", err)
	}

	m.launcher = l
	m.browser = b.Context(context.Background())
	return nil
}

// CreateContext opens an isolated context. When storageStatePath names an
// existing file, its cookies and localStorage are restored.
func (m *Manager) CreateContext(ctx context.Context, storageStatePath string) (*Context, error) {
	if m.browser == nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "browser not started", nil)
	}

	var seed *StorageState
	if storageStatePath != "" {
		st, err := LoadStorageState(storageStatePath)
		if err != nil {
			slog.Warn("ignoring unreadable storage state", "path", storageStatePath, "error", err)
		}
		seed = st
	}

	incognito, err := m.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create browser context", err)
	}
	incognito = incognito.Context(context.Background())

	if seed != nil && len(seed.Cookies) > 0 {
		if err := incognito.SetCookies(cookieParams(seed.Cookies)); err != nil {
			slog.Warn("failed to restore cookies", "path", storageStatePath, "error", err)
		}
	}

	c := &Context{
		m:         m,
		b:         incognito,
		userAgent: PickUserAgent(m.cfg.UserAgents),
		seed:      seed,
	}

	m.mu.Lock()
	m.contexts = append(m.contexts, c)
	m.mu.Unlock()

	slog.Debug("browser context created",
		"userAgent", c.userAgent,
		"session", seed != nil,
	)
	return c, nil
}

// SaveSession writes c's storage state to path, overwriting it.
func (m *Manager) SaveSession(ctx context.Context, c *Context, path string) error {
	st, err := c.StorageState(ctx)
	if err != nil {
		return err
	}
	if err := SaveStorageState(path, st); err != nil {
		return err
	}
	slog.Info("session saved", "path", path, "cookies", len(st.Cookies), "origins", len(st.Origins))
	return nil
}

// Close closes all contexts, then the browser process. Only the first call
// does any work.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		contexts := m.contexts
		m.contexts = nil
		m.mu.Unlock()

		var errs []error
		for _, c := range contexts {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if m.browser != nil {
			if err := m.browser.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if m.launcher != nil {
			m.launcher.Cleanup()
		}
		m.closeErr = errors.Join(errs...)
		slog.Info("browser shutdown complete", "contexts", len(contexts))
	})
	return m.closeErr
}
