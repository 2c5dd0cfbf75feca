package probe

import (
	"context"

	"github.com/hamed0406/watchcore/internal/domain"
)

// KindChecker routes a check to the prober matching the target's kind.
type KindChecker struct {
	HTTP Checker
	TCP  Checker
}

func NewKindChecker() *KindChecker {
	return &KindChecker{
		HTTP: NewHTTPChecker(),
		TCP:  NewTCPChecker(),
	}
}

func (k *KindChecker) Check(ctx context.Context, t *domain.Target) domain.CheckResult {
	switch t.Kind {
	case domain.ProbeHTTP:
		return k.HTTP.Check(ctx, t)
	case domain.ProbeTCP:
		return k.TCP.Check(ctx, t)
	default:
		// validation rejects unknown kinds before scheduling; this is a
		// guard, not a path targets normally reach
		return domain.CheckResult{
			TargetID: t.ID,
			Outcome:  domain.Unreachable,
			Message:  "unknown probe kind " + string(t.Kind),
			Attempts: 1,
		}
	}
}
