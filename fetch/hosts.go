package fetch

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// HostMemory remembers hosts whose pages needed a browser, so later detail
// fetches for the same host go straight to the browser. Entries expire after
// the TTL; expired entries are dropped lazily on lookup.
type HostMemory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewHostMemory returns an empty memory with the given TTL.
func NewHostMemory(ttl time.Duration) *HostMemory {
	return &HostMemory{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// BrowserOnly reports whether the host of rawURL was marked.
func (m *HostMemory) BrowserOnly(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[host]
	if !ok {
		return false
	}
	if m.now().After(exp) {
		delete(m.entries, host)
		return false
	}
	return true
}

// MarkBrowserOnly records the host of rawURL.
func (m *HostMemory) MarkBrowserOnly(rawURL string) {
	host := hostOf(rawURL)
	if host == "" {
		return
	}
	m.mu.Lock()
	m.entries[host] = m.now().Add(m.ttl)
	m.mu.Unlock()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
