package events

import (
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

// Kind discriminates events on the bus.
type Kind string

const (
	CheckStarted     Kind = "check-started"
	CheckCompleted   Kind = "check-completed"
	StatusChanged    Kind = "status-changed"
	ItemCached       Kind = "item-cached"
	ItemDeleted      Kind = "item-deleted"
	ItemExpired      Kind = "item-expired"
	ItemEvicted      Kind = "item-evicted"
	Cleared          Kind = "cleared"
	BulkUpdated      Kind = "bulk-updated"
	SchedulerStarted Kind = "scheduler-started"
	SchedulerStopped Kind = "scheduler-stopped"
)

// Event is one bus message. Seq increases monotonically per bus instance;
// consumers that need cross-target ordering must key on TargetID instead.
type Event struct {
	Kind      Kind            `json:"kind"`
	Seq       uint64          `json:"seq"`
	TargetID  domain.TargetID `json:"target_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   any             `json:"payload,omitempty"`
}

// CheckPayload accompanies check-started and check-completed events.
// Result is zero-valued for check-started.
type CheckPayload struct {
	Result domain.CheckResult `json:"result"`
}

// StatusPayload accompanies status-changed events.
type StatusPayload struct {
	From                domain.Outcome `json:"from"`
	To                  domain.Outcome `json:"to"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
}

// CachePayload accompanies cache mutation events. Count is the number of
// entries touched (bulk-updated, cleared); Key is empty for those kinds.
type CachePayload struct {
	Key   string `json:"key,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Publisher is the injected publish capability handed to the cache and
// scheduler, so tests can record exact emitted sequences.
type Publisher interface {
	Publish(kind Kind, targetID domain.TargetID, payload any)
}

// Nop is a Publisher that discards everything.
type Nop struct{}

func (Nop) Publish(Kind, domain.TargetID, any) {}
