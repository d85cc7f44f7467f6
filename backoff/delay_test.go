package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBetweenStaysInRange(t *testing.T) {
	lo, hi := 2*time.Millisecond, 5*time.Millisecond
	for i := 0; i < 1000; i++ {
		d := Between(lo, hi)
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
}

func TestBetweenEdgeCases(t *testing.T) {
	assert.Equal(t, time.Second, Between(time.Second, time.Second))

	d := Between(5*time.Millisecond, time.Millisecond)
	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.LessOrEqual(t, d, 5*time.Millisecond)
}

func TestRandomDelayHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RandomDelay(ctx, time.Minute, 2*time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRandomDelaySleeps(t *testing.T) {
	start := time.Now()
	assert.NoError(t, RandomDelay(context.Background(), 10*time.Millisecond, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
