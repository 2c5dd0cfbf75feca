package events

import (
	"testing"

	"go.uber.org/zap"
)

func TestBus_SequenceIsMonotonic(t *testing.T) {
	b := NewBus(zap.NewNop(), 16)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(CheckStarted, "T1", nil)
	b.Publish(CheckCompleted, "T1", nil)
	b.Publish(StatusChanged, "T2", nil)

	var last uint64
	for i := 0; i < 3; i++ {
		ev := <-sub.C()
		if ev.Seq <= last {
			t.Fatalf("sequence not increasing: %d after %d", ev.Seq, last)
		}
		last = ev.Seq
	}
}

func TestBus_SubscribeByKind(t *testing.T) {
	b := NewBus(zap.NewNop(), 16)
	sub := b.Subscribe(StatusChanged)
	defer sub.Unsubscribe()

	b.Publish(CheckCompleted, "T1", nil)
	b.Publish(StatusChanged, "T1", nil)

	ev := <-sub.C()
	if ev.Kind != StatusChanged {
		t.Fatalf("filtered subscription got %v", ev.Kind)
	}
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected extra event %v", ev.Kind)
	default:
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBus(zap.NewNop(), 16)
	sub := b.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe() // must not panic or double-close

	b.Publish(CheckStarted, "T1", nil) // must not deliver to a closed channel

	if _, ok := <-sub.C(); ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}
}

func TestBus_SlowSubscriberDropsOldestFirst(t *testing.T) {
	b := NewBus(zap.NewNop(), 2)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	// nobody drains: queue of 2 overflows on the third publish
	b.Publish(CheckStarted, "T1", nil)
	b.Publish(CheckCompleted, "T1", nil)
	b.Publish(StatusChanged, "T1", nil)

	first := <-sub.C()
	if first.Kind != CheckCompleted {
		t.Fatalf("oldest event should have been dropped, head is %v", first.Kind)
	}
	second := <-sub.C()
	if second.Kind != StatusChanged {
		t.Fatalf("newest event must survive, got %v", second.Kind)
	}
}
