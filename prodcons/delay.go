package prodcons

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomDelay returns a source of pauses drawn uniformly from [0, limit).
// A non-positive limit yields no pause at all.
func RandomDelay(limit time.Duration) func() time.Duration {
	if limit <= 0 {
		return func() time.Duration { return 0 }
	}
	return func() time.Duration { return rand.N(limit) }
}

// sleep pauses for d or until ctx is done, whichever comes first. It returns
// context.Cause(ctx) if the pause was cut short.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
