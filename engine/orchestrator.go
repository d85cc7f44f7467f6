package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/backoff"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
	"github.com/josequispe9/ScraperMELI-Linkedin/pool"
	"github.com/josequispe9/ScraperMELI-Linkedin/site"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options tune a run. Zero values fall back to the defaults noted per field.
type Options struct {
	// ConcurrentPages bounds how many terms run at once; it should equal the
	// pool capacity. default: 1
	ConcurrentPages int

	// DelayMin and DelayMax bound the random pause before each term and
	// between detail visits.
	DelayMin, DelayMax time.Duration

	// ReadyTimeout bounds the wait for the site's ready selector.
	// default: 15s
	ReadyTimeout time.Duration

	// StagnationPasses ends a term after this many consecutive passes that
	// found nothing new. default: 3
	StagnationPasses int

	// MaxAttempts, BackoffBase and BackoffFactor shape navigation retries.
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64

	// NavigationsPerSecond paces term starts across all pages; <= 0 means
	// unlimited.
	NavigationsPerSecond float64

	// MaxCandidates bounds the cards parsed per snapshot. default: 500
	MaxCandidates int

	Logger *slog.Logger
}

// Result is what a run hands to the exporter.
type Result struct {
	Records []models.Record
	Summary models.RunSummary
}

// Orchestrator runs the search terms of one site.
type Orchestrator struct {
	site    *site.Site
	pages   *pool.Pool[Page]
	details *parser.Details
	opts    Options
	limiter *rate.Limiter
	log     *slog.Logger
}

// New builds an orchestrator over an initialized pool. details may be nil
// to skip detail enrichment.
func New(s *site.Site, pages *pool.Pool[Page], details *parser.Details, opts Options) *Orchestrator {
	if opts.ConcurrentPages <= 0 {
		opts.ConcurrentPages = 1
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 15 * time.Second
	}
	if opts.StagnationPasses <= 0 {
		opts.StagnationPasses = 3
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 2
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 500
	}

	limit := rate.Inf
	if opts.NavigationsPerSecond > 0 {
		limit = rate.Limit(opts.NavigationsPerSecond)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		site:    s,
		pages:   pages,
		details: details,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With("site", s.Name),
	}
}

// Run scrapes every term and returns the merged records with a summary. It
// never returns an error: term failures are recorded in the summary and the
// remaining terms keep running.
func (o *Orchestrator) Run(ctx context.Context, terms []string) *Result {
	start := time.Now()
	summary := models.RunSummary{Site: o.site.Name, Errors: []string{}}

	if len(terms) == 0 {
		summary.Errors = append(summary.Errors, "no search terms")
		summary.PerTerm = map[string]int{}
		return &Result{Summary: summary}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	acc := newAcceptedSet(o.site.MaxItems, cancel)

	o.log.Info("run started",
		"terms", len(terms),
		"concurrentPages", o.opts.ConcurrentPages,
		"maxItems", o.site.MaxItems,
		"maxItemsPerTerm", o.site.MaxItemsPerTerm,
	)

	results := make([]models.TermResult, len(terms))
	var g errgroup.Group
	g.SetLimit(o.opts.ConcurrentPages)
	for i, term := range terms {
		g.Go(func() error {
			results[i] = o.runTerm(runCtx, term, acc)
			return nil
		})
	}
	_ = g.Wait()

	records, perTerm, capReached := acc.snapshot()
	failed := 0
	for _, r := range results {
		summary.Insufficient += r.Insufficient
		if r.State == models.TermFailed {
			failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("term %q: %s", r.Term, r.Error))
		}
	}
	summary.Terms = results
	summary.PerTerm = perTerm
	summary.ItemCount = len(records)
	summary.CapReached = capReached
	summary.Success = failed == 0 || len(records) > 0
	summary.ElapsedMs = time.Since(start).Milliseconds()

	o.log.Info("run finished",
		"items", summary.ItemCount,
		"failedTerms", failed,
		"capReached", capReached,
		"elapsed", time.Since(start),
	)
	return &Result{Records: records, Summary: summary}
}

// termCap is min(max_items_per_term, max_items), ignoring unset limits.
func (o *Orchestrator) termCap() int {
	perTerm, global := o.site.MaxItemsPerTerm, o.site.MaxItems
	switch {
	case perTerm <= 0:
		return global
	case global <= 0:
		return perTerm
	default:
		return min(perTerm, global)
	}
}

func (o *Orchestrator) retryPolicy(op string, onRetry func(int, time.Duration, error)) backoff.Policy {
	p := backoff.DefaultPolicy(op)
	p.MaxAttempts = o.opts.MaxAttempts
	p.Factor = o.opts.BackoffFactor
	if o.opts.BackoffBase > 0 {
		p.BaseDelay = o.opts.BackoffBase
	}
	p.OnRetry = onRetry
	p.Logger = o.log
	return p
}
