package probe

import (
	"context"
	"math/rand"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

// RetryChecker wraps a Checker with bounded retries and exponential
// backoff. A target with RetryCount=n gets up to n+1 attempts; the first
// reachable result short-circuits, and when every attempt fails the last
// failing result is returned so the freshest diagnostic surfaces.
type RetryChecker struct {
	Inner     Checker
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, t *domain.Target) domain.CheckResult {
	attempts := t.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	var last domain.CheckResult
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return incomplete(last, i)
			case <-time.After(r.delayBefore(i + 1)):
			}
		}
		last = r.Inner.Check(ctx, t)
		last.Attempts = i + 1
		if last.Outcome == domain.Reachable {
			return last
		}
		// target disabled or removed mid-series: stop here with what we have
		if ctx.Err() != nil && i < attempts-1 {
			return incomplete(last, i+1)
		}
	}
	return last
}

// delayBefore computes the sleep preceding attempt n (n >= 2):
// min(base * 2^(n-2), max) plus random jitter in [0, base) so many targets
// retrying at once do not synchronize.
func (r *RetryChecker) delayBefore(n int) time.Duration {
	base := r.BaseDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	max := r.MaxDelay
	if max <= 0 {
		max = 10 * time.Second
	}
	d := base << (n - 2)
	if d > max || d <= 0 { // shift overflow guards the cap too
		d = max
	}
	return d + time.Duration(rand.Int63n(int64(base)))
}

func incomplete(last domain.CheckResult, attempts int) domain.CheckResult {
	last.Attempts = attempts
	if last.Message != "" {
		last.Message += " (incomplete)"
	} else {
		last.Message = "(incomplete)"
	}
	return last
}
