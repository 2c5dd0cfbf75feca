package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

func TestStore_TargetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	tg := &domain.Target{Kind: domain.ProbeHTTP, Address: "https://example.com"}
	if err := s.Add(ctx, tg); err != nil {
		t.Fatal(err)
	}
	if tg.ID == "" {
		t.Fatalf("Add must mint an id")
	}
	if tg.CreatedAt.IsZero() {
		t.Fatalf("Add must stamp CreatedAt")
	}

	got, err := s.Get(ctx, tg.ID)
	if err != nil || got == nil || got.Address != tg.Address {
		t.Fatalf("Get: %+v %v", got, err)
	}

	got.Address = "https://changed.example.com"
	if err := s.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := s.Get(ctx, tg.ID)
	if again.Address != "https://changed.example.com" {
		t.Fatalf("Update not persisted: %+v", again)
	}

	if err := s.Update(ctx, &domain.Target{ID: "ghost"}); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("Update of unknown id: %v", err)
	}

	ts, _ := s.List(ctx)
	if len(ts) != 1 {
		t.Fatalf("want 1 target, got %d", len(ts))
	}

	if err := s.Remove(ctx, tg.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, tg.ID); err != nil {
		t.Fatalf("Remove must be idempotent: %v", err)
	}
	if got, _ := s.Get(ctx, tg.ID); got != nil {
		t.Fatalf("target should be gone, got %+v", got)
	}
}

func TestStore_HistoryNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		err := s.Append(ctx, &domain.CheckResult{
			TargetID:  "T1",
			Outcome:   domain.Unreachable,
			CheckedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.RecentByTarget(ctx, "T1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CheckedAt.After(rows[i-1].CheckedAt) {
			t.Fatalf("rows must be newest-first: %v before %v", rows[i-1].CheckedAt, rows[i].CheckedAt)
		}
	}

	all, _ := s.RecentByTarget(ctx, "T1", 0)
	if len(all) != 5 {
		t.Fatalf("limit 0 returns everything, got %d", len(all))
	}

	none, _ := s.RecentByTarget(ctx, "other", 10)
	if len(none) != 0 {
		t.Fatalf("unknown target has no history, got %d", len(none))
	}
}
