package repo

import (
	"context"

	"github.com/hamed0406/watchcore/internal/domain"
)

// Ports (interfaces). Swap in any DB adapter later.

// TargetStore persists target definitions. Get returns nil, nil when the
// id is unknown; Remove of an unknown id is a no-op.
type TargetStore interface {
	Add(ctx context.Context, t *domain.Target) error
	Update(ctx context.Context, t *domain.Target) error
	Remove(ctx context.Context, id domain.TargetID) error
	Get(ctx context.Context, id domain.TargetID) (*domain.Target, error)
	List(ctx context.Context) ([]*domain.Target, error)
}

// HistoryStore is the append/query surface the core needs from the
// persistence engine. RecentByTarget returns newest-first, at most limit
// rows; it is what rebuilds in-memory state at boot.
type HistoryStore interface {
	Append(ctx context.Context, r *domain.CheckResult) error
	RecentByTarget(ctx context.Context, id domain.TargetID, limit int) ([]*domain.CheckResult, error)
}
