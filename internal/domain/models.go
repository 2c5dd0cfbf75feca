package domain

import "time"

type TargetID string

// ProbeKind selects how a target's reachability is checked.
type ProbeKind string

const (
	ProbeHTTP ProbeKind = "http"
	ProbeTCP  ProbeKind = "tcp"
)

// Outcome is the result class of a single check.
type Outcome string

const (
	Reachable   Outcome = "reachable"
	Unreachable Outcome = "unreachable"
	Degraded    Outcome = "degraded"
)

// Failed reports whether the outcome counts against the target's
// consecutive-failure count.
func (o Outcome) Failed() bool { return o != Reachable }

// Target is one monitored endpoint. The orchestrator owns the canonical
// copy; every other component refers to it by ID.
type Target struct {
	ID            TargetID      `json:"id"`
	Name          string        `json:"name,omitempty"`
	Kind          ProbeKind     `json:"kind"`
	Address       string        `json:"address"` // URL for http, host:port for tcp
	Timeout       time.Duration `json:"timeout"`
	Interval      time.Duration `json:"interval"`
	RetryCount    int           `json:"retry_count"`
	DegradedAfter time.Duration `json:"degraded_after,omitempty"` // latency above this is degraded; 0 disables
	Enabled       bool          `json:"enabled"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CheckResult is the immutable outcome of one check (possibly after
// retries). Attempts is the number of probe attempts consumed.
type CheckResult struct {
	TargetID  TargetID      `json:"target_id"`
	Outcome   Outcome       `json:"outcome"`
	Latency   time.Duration `json:"latency"`
	Message   string        `json:"message,omitempty"`
	Attempts  int           `json:"attempts"`
	CheckedAt time.Time     `json:"checked_at"`
}
