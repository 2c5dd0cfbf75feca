package probe

import (
	"context"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

// Checker performs a single reachability check against one target. It
// never blocks past the target's timeout and never returns an error:
// every fault is captured into the result's outcome and message.
type Checker interface {
	Check(ctx context.Context, t *domain.Target) domain.CheckResult
}

const timeoutMessage = "timeout"

// classify applies the shared success mapping: a protocol-level success is
// reachable unless latency crossed the target's degraded threshold.
func classify(t *domain.Target, latency time.Duration) domain.Outcome {
	if t.DegradedAfter > 0 && latency > t.DegradedAfter {
		return domain.Degraded
	}
	return domain.Reachable
}
