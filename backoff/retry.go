package backoff

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Policy describes how a fallible operation is retried.
//
// MaxAttempts is the total number of invocations, so MaxAttempts=3 calls the
// operation at most three times. The wait after the n-th failed attempt
// (n starting at 1) is BaseDelay * Factor^(n-1), capped at MaxDelay, plus a
// positive jitter of up to Jitter*wait. Waits never decrease across attempts.
type Policy struct {
	// Op names the operation in log events and errors.
	Op string

	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64

	// MaxDelay caps a single wait before jitter; 0 means no cap.
	MaxDelay time.Duration

	// Jitter is the fraction of the wait added at random. default: 0.1
	Jitter float64

	// OnRetry, when set, is called before sleeping for the next attempt.
	OnRetry func(attempt int, wait time.Duration, err error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultPolicy mirrors the scraper defaults: 3 attempts, 2s base, factor 2.
func DefaultPolicy(op string) Policy {
	return Policy{
		Op:          op,
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Factor:      2,
		MaxDelay:    30 * time.Second,
		Jitter:      0.1,
	}
}

// sleep is swapped in tests to observe waits without sleeping.
var sleep = sleepCtx

// Do invokes op until it succeeds, fails with a non-transient error, the
// attempts run out, or ctx is done.
//
// Exhaustion yields a *models.RetriesExhaustedError wrapping the last error.
// A non-transient error is returned as is after its first occurrence.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	start := time.Now()
	var lastErr error
	var prevWait time.Duration

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		elapsed := time.Since(start)
		if err == nil {
			logger.Debug("attempt succeeded",
				"op", p.Op,
				"attempt", attempt,
				"elapsed", elapsed,
			)
			return v, nil
		}
		lastErr = err

		logger.Warn("attempt failed",
			"op", p.Op,
			"attempt", attempt,
			"max_attempts", attempts,
			"elapsed", elapsed,
			"error", err,
		)

		if !models.IsTransient(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		wait := p.delay(attempt)
		if wait < prevWait {
			wait = prevWait
		}
		prevWait = wait

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	logger.Error("retries exhausted",
		"op", p.Op,
		"attempts", attempts,
		"elapsed", time.Since(start),
		"error", lastErr,
	)
	return zero, &models.RetriesExhaustedError{Op: p.Op, Attempts: attempts, Last: lastErr}
}

// Retry is Do for operations without a result value.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// delay computes the wait after the given failed attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 0 && d > 0 {
		d += d * jitter * rand.Float64()
	}
	return time.Duration(d)
}
