package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/domain"
)

const defaultQueueSize = 256

// Bus is a typed publish/subscribe channel between the core's producers
// (scheduler, cache) and its consumers (persistence, UI, notifications).
// Publish never blocks: each subscriber has a bounded queue and, when it
// is full, the oldest queued event is dropped with a logged warning.
type Bus struct {
	logger    *zap.Logger
	queueSize int

	mu   sync.Mutex
	seq  uint64
	subs map[string]*Subscription
}

// Subscription is the handle returned by Subscribe. Receive events from C;
// Unsubscribe is idempotent and closes C.
type Subscription struct {
	id    string
	kinds map[Kind]struct{} // empty means all kinds
	ch    chan Event
	bus   *Bus
	once  sync.Once

	dropped uint64 // guarded by bus.mu
}

func NewBus(logger *zap.Logger, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		logger:    logger,
		queueSize: queueSize,
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe registers a consumer for the given kinds. No kinds means every
// kind.
func (b *Bus) Subscribe(kinds ...Kind) *Subscription {
	s := &Subscription{
		id:    uuid.NewString(),
		kinds: make(map[Kind]struct{}, len(kinds)),
		ch:    make(chan Event, b.queueSize),
		bus:   b,
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}
	b.mu.Lock()
	b.subs[s.id] = s
	b.mu.Unlock()
	return s
}

func (s *Subscription) C() <-chan Event { return s.ch }

// Unsubscribe removes the subscription and closes its channel. Calling it
// more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

func (s *Subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Publish assigns the next sequence number and fans the event out. The
// sequence is taken inside the critical section, so per-bus ordering holds
// even with concurrent publishers.
func (b *Bus) Publish(kind Kind, targetID domain.TargetID, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{
		Kind:      kind,
		Seq:       b.seq,
		TargetID:  targetID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	for _, s := range b.subs {
		if !s.wants(kind) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			// queue full: shed the oldest event, keep the newest
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- ev:
			default:
			}
			s.dropped++
			b.logger.Warn("bus_subscriber_lagging",
				zap.String("subscription", s.id),
				zap.String("kind", string(kind)),
				zap.Uint64("dropped_total", s.dropped),
			)
		}
	}
}
