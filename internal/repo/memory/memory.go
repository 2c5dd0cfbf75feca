package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/repo"
)

// Store keeps targets and check history in memory. Used for tests and for
// running without DATABASE_URL.
type Store struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]*domain.Target
	results map[domain.TargetID][]*domain.CheckResult
}

func New() *Store {
	return &Store{
		targets: make(map[domain.TargetID]*domain.Target),
		results: make(map[domain.TargetID][]*domain.CheckResult),
	}
}

func (m *Store) Add(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) Update(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[t.ID]; !ok {
		return domain.ErrTargetNotFound
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) Remove(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.targets, id)
	delete(m.results, id)
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *Store) List(ctx context.Context) ([]*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.results[r.TargetID] = append(m.results[r.TargetID], &cp)
	return nil
}

func (m *Store) RecentByTarget(ctx context.Context, id domain.TargetID, limit int) ([]*domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.results[id]
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	// stored oldest-first, returned newest-first
	out := make([]*domain.CheckResult, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

var _ repo.TargetStore = (*Store)(nil)
var _ repo.HistoryStore = (*Store)(nil)
