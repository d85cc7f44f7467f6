package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomDelay suspends the caller for a uniformly random duration in
// [min, max]. It returns ctx.Err() if ctx is done first.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	return sleep(ctx, Between(min, max))
}

// Between returns a uniformly random duration in [min, max]. Swapped bounds
// are tolerated; equal bounds return min.
func Between(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	if max == min {
		return min
	}
	return min + rand.N(max-min+1)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
