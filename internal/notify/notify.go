package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers one human-readable alert. Delivery is best effort; the
// core only emits events, consumers like Watcher decide when to send.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans an alert out to several notifiers, collecting every failure.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, title, text))
	}
	return errs
}
