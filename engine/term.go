package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/backoff"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/josequispe9/ScraperMELI-Linkedin/parser"
)

// termRun carries one term through its states.
type termRun struct {
	o      *Orchestrator
	term   string
	url    string
	at     string // last address that yielded a clean snapshot
	log    *slog.Logger
	result models.TermResult
}

func (t *termRun) set(state models.TermState) {
	if t.result.State == state {
		return
	}
	t.result.State = state
	t.log.Debug("term state", "state", state)
}

// end records a terminal state. Errors caused by the run being cancelled
// (global cap, signal) end the term as CANCELLED rather than FAILED.
func (t *termRun) end(ctx context.Context, err error) models.TermResult {
	switch {
	case err == nil:
		t.set(models.TermDone)
	case ctx.Err() != nil:
		t.set(models.TermCancelled)
	default:
		t.result.Error = err.Error()
		t.set(models.TermFailed)
		t.log.Error("term failed",
			"code", models.CodeOf(err),
			"passes", t.result.Passes,
			"error", err,
		)
	}
	return t.result
}

// runTerm executes PENDING → NAVIGATING → EXTRACTING (⇄ RETRYING) → DONE|FAILED.
func (o *Orchestrator) runTerm(ctx context.Context, term string, acc *acceptedSet) models.TermResult {
	t := &termRun{
		o:      o,
		term:   term,
		url:    o.site.SearchURL(term),
		log:    o.log.With("term", term),
		result: models.TermResult{Term: term, State: models.TermPending},
	}
	start := time.Now()

	// ── 1. Stagger and pace ───────────────────────────────────────────
	if err := backoff.RandomDelay(ctx, o.opts.DelayMin, o.opts.DelayMax); err != nil {
		return t.end(ctx, err)
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return t.end(ctx, err)
	}

	// ── 2. Acquire page ───────────────────────────────────────────────
	page, err := o.pages.Get(ctx)
	if err != nil {
		if ctx.Err() == nil {
			err = models.NewScrapeError(models.ErrCodeBrowserCrash, "no page available", err)
		}
		return t.end(ctx, err)
	}
	defer o.pages.Put(page)

	// ── 3. Navigate and wait for results ──────────────────────────────
	t.set(models.TermNavigating)
	if err := backoff.Retry(ctx, o.retryPolicy("navigate", t.onRetry), func(ctx context.Context) error {
		return o.load(ctx, page, t.url)
	}); err != nil {
		return t.end(ctx, err)
	}

	// ── 4. Extraction passes ──────────────────────────────────────────
	t.set(models.TermExtracting)
	recs, err := t.extract(ctx, page)
	if err != nil {
		return t.end(ctx, err)
	}

	// ── 5. Detail enrichment (best effort) ────────────────────────────
	recs = t.enrich(ctx, page, recs)

	// ── 6. Merge into the run-wide set ────────────────────────────────
	t.result.Count = len(recs)
	added := acc.merge(term, recs)
	t.log.Info("term done",
		"records", len(recs),
		"accepted", added,
		"passes", t.result.Passes,
		"insufficient", t.result.Insufficient,
		"elapsed", time.Since(start),
	)
	return t.end(ctx, nil)
}

func (t *termRun) onRetry(attempt int, wait time.Duration, err error) {
	t.set(models.TermRetrying)
	t.log.Warn("retrying",
		"attempt", attempt,
		"wait", wait,
		"code", models.CodeOf(err),
		"error", err,
	)
}

func (o *Orchestrator) load(ctx context.Context, page Page, url string) error {
	if err := page.Navigate(ctx, url); err != nil {
		return err
	}
	return page.WaitReady(ctx, o.site.ReadySelector, o.opts.ReadyTimeout)
}

type snapshot struct {
	doc   *goquery.Document
	cards []*goquery.Selection
}

// snap takes an HTML snapshot and locates candidate cards. A block page is a
// transient BLOCKED error. Retries stay on the current results page: a block
// reloads the last address that produced cards, anything else re-reads the
// page as it is.
func (t *termRun) snap(ctx context.Context, page Page) (snapshot, error) {
	o := t.o
	attempt := 0
	var last error
	return backoff.Do(ctx, o.retryPolicy("snapshot", t.onRetry), func(ctx context.Context) (snapshot, error) {
		attempt++
		if attempt > 1 {
			// last stays the read error, so a failed reload is tried again
			if err := t.resume(ctx, page, last); err != nil {
				return snapshot{}, err
			}
		}
		s, err := t.read(ctx, page)
		last = err
		if err == nil {
			if u := page.URL(); u != "" {
				t.at = u
			}
		}
		return s, err
	})
}

func (t *termRun) resume(ctx context.Context, page Page, cause error) error {
	o := t.o
	if models.CodeOf(cause) != models.ErrCodeBlocked {
		return page.WaitReady(ctx, o.site.ReadySelector, o.opts.ReadyTimeout)
	}
	at := t.at
	if at == "" {
		at = t.url
	}
	if err := o.load(ctx, page, at); err != nil {
		return err
	}
	t.set(models.TermExtracting)
	return nil
}

func (t *termRun) read(ctx context.Context, page Page) (snapshot, error) {
	o := t.o
	html, err := page.HTML(ctx)
	if err != nil {
		return snapshot{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return snapshot{}, models.NewScrapeError(models.ErrCodeInternal, "unparsable page HTML", err)
	}
	cards := parser.FindCandidateElements(doc, o.site.Parser, o.opts.MaxCandidates)
	if o.site.Blocked(doc, len(cards)) {
		return snapshot{}, models.NewScrapeError(models.ErrCodeBlocked, "anti-bot page detected", nil)
	}
	return snapshot{doc: doc, cards: cards}, nil
}

// extract runs passes until the term cap, stagnation, or the feed ends.
func (t *termRun) extract(ctx context.Context, page Page) ([]models.Record, error) {
	o := t.o
	limit := o.termCap()
	seen := make(map[string]struct{})
	rejected := make(map[string]struct{})
	var recs []models.Record
	stagnant := 0

	for {
		if err := ctx.Err(); err != nil {
			return recs, err
		}
		t.result.Passes++

		snap, err := t.snap(ctx, page)
		if err != nil {
			if len(recs) > 0 && ctx.Err() == nil {
				// Keep what earlier passes found.
				t.log.Warn("extraction pass failed, keeping earlier records", "error", err)
				return recs, nil
			}
			return recs, err
		}

		found := 0
		for _, card := range snap.cards {
			if limit > 0 && len(recs) >= limit {
				break
			}
			rec, ok := o.site.Parser.ParseElement(card, len(recs)+1, t.term)
			if !ok {
				sig := parser.CleanText(card.Text())
				if _, dup := rejected[sig]; !dup {
					rejected[sig] = struct{}{}
					t.result.Insufficient++
				}
				continue
			}
			k := rec.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			recs = append(recs, rec)
			found++
		}

		t.log.Debug("extraction pass",
			"pass", t.result.Passes,
			"cards", len(snap.cards),
			"new", found,
			"total", len(recs),
		)

		if limit > 0 && len(recs) >= limit {
			return recs, nil
		}
		if found == 0 {
			stagnant++
			if stagnant >= o.opts.StagnationPasses {
				return recs, nil
			}
		} else {
			stagnant = 0
		}

		if err := page.Advance(ctx, o.site.LoadMoreSelector); err != nil {
			if ctx.Err() != nil {
				return recs, ctx.Err()
			}
			t.log.Debug("feed exhausted", "error", err)
			return recs, nil
		}
	}
}

// enrich visits the detail page of the first DetailLimit records. Failures
// leave the record as extracted.
func (t *termRun) enrich(ctx context.Context, page Page, recs []models.Record) []models.Record {
	o := t.o
	if o.details == nil || o.site.DetailLimit <= 0 {
		return recs
	}
	n := min(o.site.DetailLimit, len(recs))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		link := recs[i].Link()
		if link == "" {
			continue
		}
		if i > 0 {
			if err := backoff.RandomDelay(ctx, o.opts.DelayMin, o.opts.DelayMax); err != nil {
				break
			}
		}
		fields := o.details.ScrapeDetails(ctx, page, link)
		if len(fields) > 0 {
			recs[i] = recs[i].WithDetails(fields)
		}
	}
	return recs
}
