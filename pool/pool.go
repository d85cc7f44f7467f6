package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

var (
	// ErrPoolClosed is returned by Get after CloseAll.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrPoolEmpty is returned by Get once every page has been dropped, so a
	// caller never waits on a pool that can no longer hand anything out.
	ErrPoolEmpty = errors.New("pool: no pages left")
)

// replaceTimeout bounds the creation of a replacement page inside Put.
const replaceTimeout = 30 * time.Second

// Resource is what the pool manages: something that can be closed and that
// can tell whether it was closed behind the pool's back.
type Resource interface {
	comparable
	Closed() bool
	Close() error
}

// Factory creates one page.
type Factory[T Resource] func(ctx context.Context) (T, error)

// Options tunes pool behaviour.
type Options struct {
	// ReplaceClosed creates a fresh page when one is returned closed.
	// When false (or when the factory fails) the pool shrinks by one.
	ReplaceClosed bool
}

// Stats is a snapshot of the pool.
type Stats struct {
	Capacity   int `json:"capacity"`
	Size       int `json:"size"`
	CheckedOut int `json:"checked_out"`
}

// Pool is a fixed-capacity set of pages. A page is either idle (in the idle
// channel) or checked out (in the out set), never both, and the pool never
// holds more than its capacity. It is safe for concurrent use.
type Pool[T Resource] struct {
	factory Factory[T]
	opts    Options

	idle chan T

	mu       sync.Mutex
	out      map[T]struct{} // checked-out pages
	size     int            // live pages, idle + checked out
	capacity int
	closed   bool
	empty    chan struct{} // closed when size drops to zero
	done     chan struct{} // closed by CloseAll
}

// New creates an empty pool. Call Initialize before use.
func New[T Resource](factory Factory[T], opts Options) *Pool[T] {
	return &Pool[T]{
		factory: factory,
		opts:    opts,
		out:     make(map[T]struct{}),
		empty:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Initialize eagerly creates size pages. If any creation fails, the pages
// created so far are closed and the error is returned.
func (p *Pool[T]) Initialize(ctx context.Context, size int) error {
	if size <= 0 {
		return models.NewScrapeError(models.ErrCodeInvalidConfig,
			fmt.Sprintf("pool size must be > 0, got %d", size), nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity > 0 {
		return errors.New("pool: already initialized")
	}

	p.idle = make(chan T, size)
	created := make([]T, 0, size)
	for i := 0; i < size; i++ {
		page, err := p.factory(ctx)
		if err != nil {
			for _, pg := range created {
				_ = pg.Close()
			}
			return models.NewScrapeError(models.ErrCodeBrowserCrash,
				fmt.Sprintf("failed to create page %d of %d", i+1, size), err)
		}
		created = append(created, page)
	}
	for _, pg := range created {
		p.idle <- pg
	}
	p.capacity = size
	p.size = size

	slog.Debug("page pool initialized", "size", size, "replaceClosed", p.opts.ReplaceClosed)
	return nil
}

// Get checks out a page, blocking until one is idle or ctx is done.
func (p *Pool[T]) Get(ctx context.Context) (T, error) {
	var zero T
	for {
		p.mu.Lock()
		closed, size := p.closed, p.size
		p.mu.Unlock()
		if closed {
			return zero, ErrPoolClosed
		}
		if size == 0 {
			return zero, ErrPoolEmpty
		}

		select {
		case page := <-p.idle:
			if page.Closed() {
				// Died while idle: treat it like a closed return and look again.
				p.mu.Lock()
				p.out[page] = struct{}{}
				p.mu.Unlock()
				p.Put(page)
				continue
			}
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				_ = page.Close()
				return zero, ErrPoolClosed
			}
			p.out[page] = struct{}{}
			p.mu.Unlock()
			return page, nil
		case <-p.empty:
			return zero, ErrPoolEmpty
		case <-p.done:
			return zero, ErrPoolClosed
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Put returns a checked-out page. A page that was closed externally is
// dropped (or replaced, see Options.ReplaceClosed); this is logged, never
// reported as an error. Returning a page that is not checked out is ignored.
func (p *Pool[T]) Put(page T) {
	p.mu.Lock()
	if _, ok := p.out[page]; !ok {
		p.mu.Unlock()
		slog.Warn("pool: ignoring return of a page that is not checked out")
		return
	}
	delete(p.out, page)

	if p.closed {
		p.mu.Unlock()
		_ = page.Close()
		return
	}

	if !page.Closed() {
		p.idle <- page
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if p.opts.ReplaceClosed {
		ctx, cancel := context.WithTimeout(context.Background(), replaceTimeout)
		fresh, err := p.factory(ctx)
		cancel()
		if err == nil {
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				_ = fresh.Close()
				return
			}
			p.idle <- fresh
			p.mu.Unlock()
			slog.Warn("pool: page was closed externally, replaced with a fresh one")
			return
		}
		slog.Warn("pool: failed to replace closed page, shrinking", "error", err)
	}

	p.mu.Lock()
	p.size--
	remaining := p.size
	if remaining == 0 {
		close(p.empty)
	}
	p.mu.Unlock()
	slog.Warn("pool: page was closed externally, dropping it", "remaining", remaining)
}

// CloseAll closes every page, idle or checked out. Checked-out pages that
// are returned afterwards are closed again, which is harmless. It is
// idempotent.
func (p *Pool[T]) CloseAll() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)

	var pages []T
drainLoop:
	for {
		select {
		case page := <-p.idle:
			pages = append(pages, page)
		default:
			break drainLoop
		}
	}
	for page := range p.out {
		pages = append(pages, page)
	}
	p.mu.Unlock()

	for _, page := range pages {
		if err := page.Close(); err != nil {
			slog.Debug("pool: close page failed", "error", err)
		}
	}
	slog.Debug("page pool closed", "pages", len(pages))
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Capacity:   p.capacity,
		Size:       p.size,
		CheckedOut: len(p.out),
	}
}
