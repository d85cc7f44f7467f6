// Package webhook posts a signed notification when a run completes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/backoff"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// EventRunCompleted is the only event type sent.
const EventRunCompleted = "run.completed"

// SignatureHeader carries "sha256=<hex HMAC of the body>".
const SignatureHeader = "X-Scraper-Signature"

// Event is the payload: the run summary plus type and timestamp.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	models.RunSummary
}

// Notifier delivers events to one endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	policy backoff.Policy
}

// New returns a notifier for url. The body is signed when secret is set.
func New(url, secret string) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		policy: backoff.DefaultPolicy("webhook"),
	}
}

// Notify sends the run.completed event, retrying failed deliveries. Errors
// are logged and returned; they never change the run outcome.
func (n *Notifier) Notify(ctx context.Context, summary models.RunSummary) error {
	event := &Event{
		Type:       EventRunCompleted,
		Timestamp:  time.Now().Unix(),
		RunSummary: summary,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	err = backoff.Retry(ctx, n.policy, func(ctx context.Context) error {
		return n.deliver(ctx, body)
	})
	if err != nil {
		slog.Warn("webhook delivery failed", "url", n.url, "site", summary.Site, "error", err)
		return err
	}
	slog.Info("webhook delivered", "url", n.url, "site", summary.Site, "items", summary.ItemCount)
	return nil
}

func (n *Notifier) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ScraperMELI-Linkedin-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		// connection problems are worth another attempt
		return models.NewScrapeError(models.ErrCodeWebhook, "webhook: deliver", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeWebhook,
			fmt.Sprintf("webhook: endpoint returned status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
