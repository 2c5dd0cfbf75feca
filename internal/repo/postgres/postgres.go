package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/repo"
)

// Store is the postgres adapter for both persistence ports. Expected
// schema:
//
//	CREATE TABLE targets (
//	  id TEXT PRIMARY KEY, name TEXT NOT NULL DEFAULT '',
//	  kind TEXT NOT NULL, address TEXT NOT NULL,
//	  timeout_ms BIGINT NOT NULL, interval_ms BIGINT NOT NULL,
//	  retry_count INT NOT NULL, degraded_after_ms BIGINT NOT NULL DEFAULT 0,
//	  enabled BOOLEAN NOT NULL, created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE results (
//	  id BIGSERIAL PRIMARY KEY, target_id TEXT NOT NULL,
//	  outcome TEXT NOT NULL, latency_ms DOUBLE PRECISION NOT NULL,
//	  message TEXT NOT NULL DEFAULT '', attempts INT NOT NULL,
//	  checked_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX results_target_checked ON results (target_id, checked_at DESC);
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// ---- TargetStore ----

func (s *Store) Add(ctx context.Context, t *domain.Target) error {
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO targets (id, name, kind, address, timeout_ms, interval_ms, retry_count, degraded_after_ms, enabled, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Name, t.Kind, t.Address,
		t.Timeout.Milliseconds(), t.Interval.Milliseconds(),
		t.RetryCount, t.DegradedAfter.Milliseconds(), t.Enabled, t.CreatedAt)
	return err
}

func (s *Store) Update(ctx context.Context, t *domain.Target) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE targets
		    SET name=$2, kind=$3, address=$4, timeout_ms=$5, interval_ms=$6,
		        retry_count=$7, degraded_after_ms=$8, enabled=$9
		  WHERE id=$1`,
		t.ID, t.Name, t.Kind, t.Address,
		t.Timeout.Milliseconds(), t.Interval.Milliseconds(),
		t.RetryCount, t.DegradedAfter.Milliseconds(), t.Enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTargetNotFound
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id domain.TargetID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM results WHERE target_id=$1`, id)
	return err
}

func (s *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, kind, address, timeout_ms, interval_ms, retry_count, degraded_after_ms, enabled, created_at
		   FROM targets WHERE id=$1`, id)
	t, err := scanTarget(row)
	if err != nil {
		return nil, nil // not found
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Target, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, kind, address, timeout_ms, interval_ms, retry_count, degraded_after_ms, enabled, created_at
		   FROM targets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(row scanner) (*domain.Target, error) {
	var t domain.Target
	var timeoutMS, intervalMS, degradedMS int64
	if err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.Address,
		&timeoutMS, &intervalMS, &t.RetryCount, &degradedMS,
		&t.Enabled, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Timeout = time.Duration(timeoutMS) * time.Millisecond
	t.Interval = time.Duration(intervalMS) * time.Millisecond
	t.DegradedAfter = time.Duration(degradedMS) * time.Millisecond
	return &t, nil
}

// ---- HistoryStore ----

func (s *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO results (target_id, outcome, latency_ms, message, attempts, checked_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		r.TargetID, r.Outcome, float64(r.Latency)/float64(time.Millisecond),
		r.Message, r.Attempts, r.CheckedAt)
	return err
}

func (s *Store) RecentByTarget(ctx context.Context, id domain.TargetID, limit int) ([]*domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT outcome, latency_ms, message, attempts, checked_at
		   FROM results
		  WHERE target_id=$1
		  ORDER BY checked_at DESC
		  LIMIT $2`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.CheckResult
	for rows.Next() {
		r := domain.CheckResult{TargetID: id}
		var latencyMS float64
		if err := rows.Scan(&r.Outcome, &latencyMS, &r.Message, &r.Attempts, &r.CheckedAt); err != nil {
			return nil, err
		}
		r.Latency = time.Duration(latencyMS * float64(time.Millisecond))
		out = append(out, &r)
	}
	return out, rows.Err()
}

var _ repo.TargetStore = (*Store)(nil)
var _ repo.HistoryStore = (*Store)(nil)
