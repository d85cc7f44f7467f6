// Package fetch retrieves detail pages over plain HTTPS with a Chrome TLS
// fingerprint, so that server-rendered pages skip the browser entirely.
package fetch

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	tls2 "github.com/refraction-networking/utls"
)

const (
	defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	maxBodyBytes = 10 << 20
)

// StatusError is returned for HTTP responses with status >= 400.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d for %s", e.Status, e.URL)
}

// Fetcher performs GET requests with a Chrome TLS ClientHello.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
}

// Options configure a Fetcher.
type Options struct {
	Proxy          string
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration

	// RootCAs overrides the system roots; tests trust httptest certificates.
	RootCAs *x509.CertPool

	// Transport replaces the utls transport; tests point it at httptest.
	Transport http.RoundTripper
}

// New builds a Fetcher. The transport is shared across requests.
func New(opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUA
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "es-AR,es;q=0.9,en;q=0.8"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}

	rt := opts.Transport
	if rt == nil {
		t := &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialTLSChrome(ctx, network, addr, opts.RootCAs)
			},
			ForceAttemptHTTP2:   false,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
		}
		if opts.Proxy != "" {
			if proxyURL, err := url.Parse(opts.Proxy); err == nil &&
				(proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
				t.Proxy = http.ProxyURL(proxyURL)
			}
		}
		rt = t
	}

	return &Fetcher{
		client:         &http.Client{Transport: rt, Timeout: opts.Timeout},
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
	}
}

// Fetch returns the body of targetURL, capped at 10 MB.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.acceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: targetURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	return body, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// chromeH1Spec is Chrome's ClientHello with ALPN limited to http/1.1.
// http.Transport only speaks h2 over *crypto/tls.Conn, so an h2 ALPN on a
// utls connection would leave it writing HTTP/1.1 into an h2 stream. Build a
// new one per dial: ApplyPreset fills extension state in place.
func chromeH1Spec() (tls2.ClientHelloSpec, error) {
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		return spec, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}

func dialTLSChrome(ctx context.Context, network, addr string, roots *x509.CertPool) (net.Conn, error) {
	spec, err := chromeH1Spec()
	if err != nil {
		return nil, fmt.Errorf("fetch: chrome tls spec: %w", err)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host, RootCAs: roots}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("fetch: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
