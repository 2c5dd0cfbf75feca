package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

type TCPChecker struct {
	Dialer *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{Dialer: &net.Dialer{}}
}

// Check dials the target's host:port. A completed handshake within the
// timeout is reachable; refusal or timeout is unreachable.
func (c *TCPChecker) Check(ctx context.Context, t *domain.Target) domain.CheckResult {
	cctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	start := time.Now()
	res := domain.CheckResult{TargetID: t.ID, Attempts: 1}

	conn, err := c.Dialer.DialContext(cctx, "tcp", t.Address)
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
	_ = conn.Close()

	res.Outcome = classify(t, res.Latency)
	res.Message = "connected"
	return res
}
