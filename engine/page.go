// Package engine runs a scrape: it fans search terms out over a bounded set
// of browser pages, drives each term through its state machine and merges
// the results into one de-duplicated, capped record set.
package engine

import (
	"context"
	"time"
)

// Page is the browser tab a term runs on. *browser.Page implements it; tests
// use in-memory fakes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)

	// Advance loads more results (scroll, then the load-more control).
	Advance(ctx context.Context, loadMore string) error

	// URL is the current address, "" when unknown.
	URL() string

	Closed() bool
	Close() error
}
