package probe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{Client: &http.Client{}}
}

// Check issues a GET against the target URL. 2xx/3xx is reachable, 4xx/5xx
// is degraded (the endpoint answered but is unhealthy), transport errors
// and timeouts are unreachable.
func (h *HTTPChecker) Check(ctx context.Context, t *domain.Target) domain.CheckResult {
	cctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	start := time.Now()
	res := domain.CheckResult{TargetID: t.ID, Attempts: 1}

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, t.Address, nil)
	if err != nil {
		res.Outcome = domain.Unreachable
		res.Message = err.Error()
		res.CheckedAt = time.Now().UTC()
		return res
	}

	resp, err := h.Client.Do(req)
	res.Latency = time.Since(start)
	res.CheckedAt = time.Now().UTC()
	if err != nil {
		res.Outcome = domain.Unreachable
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			res.Message = timeoutMessage
		} else {
			res.Message = err.Error()
		}
		return res
	}
	defer resp.Body.Close()

	res.Message = resp.Status
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		res.Outcome = classify(t, res.Latency)
	} else {
		res.Outcome = domain.Degraded
	}
	return res
}
