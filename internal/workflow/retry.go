package workflow

import (
	"context"
	"time"
)

// RetryPolicy is a small composable retry schedule shared by generation,
// search and embedding calls. Each attempt gets its own escalating timeout so
// one slow backend cannot eat the whole run budget on the first try.
type RetryPolicy struct {
	Delays   []time.Duration
	Timeouts []time.Duration
}

// DefaultRetryPolicy escalates per-attempt timeouts 30s, 60s, 120s with
// backoff delays 1s, 2s, 4s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delays:   []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		Timeouts: []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
	}
}

// Attempts returns how many attempts the policy allows
func (p RetryPolicy) Attempts() int {
	if len(p.Timeouts) == 0 {
		return 1
	}
	return len(p.Timeouts)
}

// Do runs op up to Attempts times, applying the per-attempt timeout and the
// inter-attempt delay. It returns nil on the first success, the last error
// otherwise. The parent context cancels the whole sequence.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	attempts := p.Attempts()
	for i := 0; i < attempts; i++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if i < len(p.Timeouts) {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeouts[i])
		}
		err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
		if i < attempts-1 && i < len(p.Delays) {
			select {
			case <-time.After(p.Delays[i]):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return lastErr
}
