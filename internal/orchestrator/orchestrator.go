package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/cache"
	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/events"
	"github.com/hamed0406/watchcore/internal/probe"
	"github.com/hamed0406/watchcore/internal/repo"
	"github.com/hamed0406/watchcore/internal/scheduler"
)

// Defaults fill in target fields the caller left zero and tune the core.
type Defaults struct {
	Timeout       time.Duration
	Interval      time.Duration
	RetryCount    int
	RetryBase     time.Duration
	RetryMax      time.Duration
	Concurrency   int           // 0 = unbounded
	CacheSize     int
	CacheTTL      time.Duration
	SweepInterval time.Duration
	StopGrace     time.Duration
	HistoryLimit  int // rows loaded per target when rebuilding state at boot
}

func (d *Defaults) fill() {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Interval <= 0 {
		d.Interval = time.Minute
	}
	if d.RetryBase <= 0 {
		d.RetryBase = 250 * time.Millisecond
	}
	if d.RetryMax <= 0 {
		d.RetryMax = 10 * time.Second
	}
	if d.CacheSize <= 0 {
		d.CacheSize = 1024
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = time.Hour
	}
	if d.SweepInterval <= 0 {
		d.SweepInterval = time.Minute
	}
	if d.StopGrace <= 0 {
		d.StopGrace = 15 * time.Second
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 50
	}
}

// Orchestrator composes the check pipeline, scheduler, entity cache and
// event bus, and owns their lifecycle.
type Orchestrator struct {
	logger   *zap.Logger
	defaults Defaults
	targets  repo.TargetStore
	history  repo.HistoryStore
	bus      *events.Bus
	states   *cache.Cache[domain.TargetID, domain.EntityState]
	sched    *scheduler.Scheduler

	mu      sync.Mutex
	running bool
}

// New wires an orchestrator. checker may be nil to get the standard
// http/tcp pipeline.
func New(logger *zap.Logger, targets repo.TargetStore, history repo.HistoryStore, bus *events.Bus, checker probe.Checker, d Defaults) (*Orchestrator, error) {
	d.fill()
	states, err := cache.New[domain.TargetID, domain.EntityState](d.CacheSize, d.CacheTTL, bus)
	if err != nil {
		return nil, err
	}
	if checker == nil {
		checker = probe.NewKindChecker()
	}
	o := &Orchestrator{
		logger:   logger,
		defaults: d,
		targets:  targets,
		history:  history,
		bus:      bus,
		states:   states,
	}
	pipeline := &probe.RetryChecker{
		Inner:     checker,
		BaseDelay: d.RetryBase,
		MaxDelay:  d.RetryMax,
	}
	o.sched = scheduler.New(logger, pipeline, bus, o, d.Concurrency)
	return o, nil
}

// Start loads persisted targets, rebuilds cached state from recent history
// and begins scheduling.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}

	ts, err := o.targets.List(ctx)
	if err != nil {
		return err
	}
	rebuilt := make(map[domain.TargetID]domain.EntityState)
	for _, t := range ts {
		recent, err := o.history.RecentByTarget(ctx, t.ID, o.defaults.HistoryLimit)
		if err != nil {
			o.logger.Warn("boot_history_error", zap.String("target_id", string(t.ID)), zap.Error(err))
			continue
		}
		if st, ok := domain.RebuildState(t.ID, recent); ok {
			rebuilt[t.ID] = st
		}
	}
	if len(rebuilt) > 0 {
		o.states.BulkSet(rebuilt)
	}
	o.states.StartSweeper(o.defaults.SweepInterval)

	o.sched.Start(ctx)
	for _, t := range ts {
		o.sched.Add(t)
	}
	o.running = true
	o.logger.Info("orchestrator_started",
		zap.Int("targets", len(ts)),
		zap.Int("rebuilt_states", len(rebuilt)),
	)
	return nil
}

// Stop halts scheduling, waiting out the grace period for in-flight
// checks, and shuts the cache sweeper down.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	o.sched.Stop(o.defaults.StopGrace)
	o.states.Close()
	o.logger.Info("orchestrator_stopped")
}

// Apply folds a completed check into cached state, persists it, and emits
// status-changed on transitions. Called by the scheduler; at most once
// concurrently per target, so the read-modify-write below is safe.
func (o *Orchestrator) Apply(ctx context.Context, r *domain.CheckResult) {
	prev, had := o.states.Get(r.TargetID)
	next, changed := prev.Apply(*r)
	o.states.Set(r.TargetID, next)

	if err := o.history.Append(ctx, r); err != nil {
		o.logger.Warn("history_append_error",
			zap.String("target_id", string(r.TargetID)),
			zap.Error(err),
		)
	}

	if changed || !had {
		o.bus.Publish(events.StatusChanged, r.TargetID, events.StatusPayload{
			From:                prev.Outcome,
			To:                  next.Outcome,
			ConsecutiveFailures: next.ConsecutiveFailures,
		})
	}
}

// AddTarget validates, persists and schedules a new target. The only
// error surfaced here is a ValidationError (or storage failure); the
// target never gets scheduled on rejection.
func (o *Orchestrator) AddTarget(ctx context.Context, t *domain.Target) (*domain.Target, error) {
	o.applyDefaults(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if err := o.targets.Add(ctx, t); err != nil {
		return nil, err
	}
	o.mu.Lock()
	if o.running {
		o.sched.Add(t)
	}
	o.mu.Unlock()
	o.logger.Info("target_added",
		zap.String("target_id", string(t.ID)),
		zap.String("kind", string(t.Kind)),
		zap.String("address", t.Address),
	)
	return t, nil
}

// UpdateTarget replaces a target's configuration. A running check for the
// target is not interrupted (unless the update disables it); the new
// settings apply from the next tick.
func (o *Orchestrator) UpdateTarget(ctx context.Context, id domain.TargetID, t *domain.Target) (*domain.Target, error) {
	existing, err := o.targets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrTargetNotFound
	}
	t.ID = id
	t.CreatedAt = existing.CreatedAt
	o.applyDefaults(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := o.targets.Update(ctx, t); err != nil {
		return nil, err
	}
	o.mu.Lock()
	if o.running {
		o.sched.Add(t) // replace-on-add swaps config and timer
	}
	o.mu.Unlock()
	o.logger.Info("target_updated", zap.String("target_id", string(id)))
	return t, nil
}

// RemoveTarget unschedules and forgets a target. Idempotent: a second call
// changes nothing and emits nothing.
func (o *Orchestrator) RemoveTarget(ctx context.Context, id domain.TargetID) error {
	o.sched.Remove(id)
	o.states.Delete(id)
	if err := o.targets.Remove(ctx, id); err != nil {
		return err
	}
	o.logger.Info("target_removed", zap.String("target_id", string(id)))
	return nil
}

// CheckNow forces an out-of-band check, subject to the same
// single-in-flight rule as timer ticks.
func (o *Orchestrator) CheckNow(id domain.TargetID) error {
	return o.sched.CheckNow(id)
}

// PauseAll suspends dispatching across every target; timers keep running.
func (o *Orchestrator) PauseAll() {
	o.sched.Pause()
	o.logger.Info("checks_paused")
}

func (o *Orchestrator) ResumeAll() {
	o.sched.Resume()
	o.logger.Info("checks_resumed")
}

// State returns the cached health of one target.
func (o *Orchestrator) State(id domain.TargetID) (domain.EntityState, bool) {
	return o.states.Get(id)
}

// CacheStats snapshots the entity cache counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.states.Stats()
}

// Targets lists the persisted target definitions.
func (o *Orchestrator) Targets(ctx context.Context) ([]*domain.Target, error) {
	return o.targets.List(ctx)
}

// Target fetches one target definition.
func (o *Orchestrator) Target(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	return o.targets.Get(ctx, id)
}

func (o *Orchestrator) applyDefaults(t *domain.Target) {
	if t.Timeout <= 0 {
		t.Timeout = o.defaults.Timeout
	}
	if t.Interval <= 0 {
		t.Interval = o.defaults.Interval
	}
	if t.RetryCount == 0 {
		t.RetryCount = o.defaults.RetryCount
	}
	if t.Kind == "" {
		t.Kind = domain.ProbeHTTP
	}
}
