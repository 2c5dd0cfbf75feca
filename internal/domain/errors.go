package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrTargetNotFound is returned when a target id is unknown.
	ErrTargetNotFound = errors.New("target not found")
	// ErrCheckInFlight is returned by a forced check when one is already
	// running for the same target.
	ErrCheckInFlight = errors.New("check already in flight")
	// ErrNotRunning is returned by operations that need a started orchestrator.
	ErrNotRunning = errors.New("orchestrator not running")
)

// ValidationError rejects an invalid target definition. It is the only
// error surfaced synchronously from AddTarget/UpdateTarget; per-check
// failures never reach the caller as errors.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid target: %s %s", e.Field, e.Reason)
}

const minInterval = time.Second

// Validate checks a target definition before it is ever scheduled.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Address) == "" {
		return &ValidationError{Field: "address", Reason: "is required"}
	}
	switch t.Kind {
	case ProbeHTTP:
		u, err := url.Parse(t.Address)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: "address", Reason: "must be an absolute URL"}
		}
	case ProbeTCP:
		if !strings.Contains(t.Address, ":") {
			return &ValidationError{Field: "address", Reason: "must be host:port"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: `must be "http" or "tcp"`}
	}
	if t.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Reason: "must be positive"}
	}
	if t.Interval < minInterval {
		return &ValidationError{Field: "interval", Reason: "must be at least 1s"}
	}
	if t.RetryCount < 0 {
		return &ValidationError{Field: "retry_count", Reason: "must not be negative"}
	}
	return nil
}
