package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/events"
)

type WatcherConfig struct {
	// Cooldown suppresses repeat failure alerts for the same target.
	Cooldown time.Duration
	// AlertOnRecovery sends a message when a target comes back; recovery
	// alerts bypass the cooldown.
	AlertOnRecovery bool
}

// Watcher consumes status-changed events and turns them into
// notifications. Cooldown state is per-process: the event stream already
// carries only transitions, so there is nothing worth persisting.
type Watcher struct {
	logger   *zap.Logger
	notifier Notifier
	cfg      WatcherConfig

	mu       sync.Mutex
	lastSent map[domain.TargetID]time.Time
}

func NewWatcher(logger *zap.Logger, notifier Notifier, cfg WatcherConfig) *Watcher {
	return &Watcher{
		logger:   logger,
		notifier: notifier,
		cfg:      cfg,
		lastSent: make(map[domain.TargetID]time.Time),
	}
}

// Run drains the subscription until ctx is cancelled or the subscription
// is closed.
func (w *Watcher) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			w.handle(ctx, ev)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev events.Event) {
	if ev.Kind != events.StatusChanged {
		return
	}
	p, ok := ev.Payload.(events.StatusPayload)
	if !ok {
		return
	}

	recovered := p.To == domain.Reachable
	if recovered && !w.cfg.AlertOnRecovery {
		return
	}
	if !recovered && !w.cooled(ev.TargetID, ev.Timestamp) {
		return
	}

	title := "🔴 Target " + string(p.To)
	if recovered {
		title = "🟢 Target RECOVERED"
	}
	text := fmt.Sprintf("Target: %s\nState: %s → %s\nConsecutive failures: %d\nAt: %s",
		ev.TargetID, p.From, p.To, p.ConsecutiveFailures, ev.Timestamp.Format(time.RFC3339))

	if err := w.notifier.Send(ctx, title, text); err != nil {
		w.logger.Warn("notify_send_error",
			zap.String("target_id", string(ev.TargetID)),
			zap.Error(err),
		)
		return
	}
	if !recovered {
		w.mu.Lock()
		w.lastSent[ev.TargetID] = ev.Timestamp
		w.mu.Unlock()
	}
}

func (w *Watcher) cooled(id domain.TargetID, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastSent[id]
	return !ok || now.Sub(last) >= w.cfg.Cooldown
}
