package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/events"
	"github.com/hamed0406/watchcore/internal/probe"
)

// Sink receives completed check results. The orchestrator implements it to
// update the entity cache and append history.
type Sink interface {
	Apply(ctx context.Context, r *domain.CheckResult)
}

// Scheduler owns one independent timer per target. Checks for different
// targets run concurrently, bounded by an optional global cap; for any
// single target at most one check is ever in flight: a tick that lands
// while the previous check still runs is skipped, never queued.
type Scheduler struct {
	logger  *zap.Logger
	checker probe.Checker
	pub     events.Publisher
	sink    Sink
	sem     chan struct{} // nil means no global cap

	mu      sync.Mutex
	runners map[domain.TargetID]*runner
	started bool

	paused atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// runner is the scheduler-owned handle for one target. Targets never hold
// a reference back into the scheduler.
type runner struct {
	target atomic.Pointer[domain.Target]
	ctx    context.Context
	cancel context.CancelFunc
	reset  chan struct{}

	inFlight atomic.Bool
	gone     atomic.Bool

	mu          sync.Mutex
	checkCancel context.CancelFunc // cancels the in-flight attempt series
}

func New(logger *zap.Logger, checker probe.Checker, pub events.Publisher, sink Sink, concurrency int) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		checker: checker,
		pub:     pub,
		sink:    sink,
		runners: make(map[domain.TargetID]*runner),
	}
	if concurrency > 0 {
		s.sem = make(chan struct{}, concurrency)
	}
	return s
}

// Start makes the scheduler live. Targets added before Start begin ticking
// now; targets added after begin immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, r := range s.runners {
		s.launch(r)
	}
	s.pub.Publish(events.SchedulerStarted, "", nil)
	s.logger.Info("scheduler_started", zap.Int("targets", len(s.runners)))
}

// Stop cancels every timer and waits up to grace for in-flight checks to
// finish; whatever is still running after that is abandoned and logged.
func (s *Scheduler) Stop(grace time.Duration) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler_stopped")
	case <-time.After(grace):
		s.logger.Warn("scheduler_stop_timeout", zap.Duration("grace", grace))
	}
	s.pub.Publish(events.SchedulerStopped, "", nil)
}

// Add registers a target or, if already scheduled, swaps in the new
// configuration without disturbing any in-flight check. The new interval
// takes effect on the next tick.
func (s *Scheduler) Add(t *domain.Target) {
	cp := *t
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.runners[cp.ID]; ok {
		r.target.Store(&cp)
		if !cp.Enabled {
			r.cancelCheck() // abandon remaining retries at the next safe point
		}
		select {
		case r.reset <- struct{}{}:
		default:
		}
		s.logger.Debug("scheduler_target_updated", zap.String("target_id", string(cp.ID)))
		return
	}

	r := &runner{reset: make(chan struct{}, 1)}
	r.target.Store(&cp)
	s.runners[cp.ID] = r
	if s.started {
		s.launch(r)
	}
	s.logger.Debug("scheduler_target_added", zap.String("target_id", string(cp.ID)))
}

// Remove cancels the target's timer. An in-flight check finishes but its
// result is dropped. Removing an unknown id is a no-op.
func (s *Scheduler) Remove(id domain.TargetID) {
	s.mu.Lock()
	r, ok := s.runners[id]
	if ok {
		delete(s.runners, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	r.gone.Store(true)
	if r.cancel != nil {
		r.cancel()
	}
	r.cancelCheck()
	s.logger.Debug("scheduler_target_removed", zap.String("target_id", string(id)))
}

// CheckNow forces an out-of-band check, still honoring the
// single-in-flight rule: if one is running, ErrCheckInFlight is returned
// and nothing extra runs.
func (s *Scheduler) CheckNow(id domain.TargetID) error {
	s.mu.Lock()
	r, ok := s.runners[id]
	started := s.started
	s.mu.Unlock()
	if !ok {
		return domain.ErrTargetNotFound
	}
	if !started {
		return domain.ErrNotRunning
	}
	t := r.target.Load()
	if !r.inFlight.CompareAndSwap(false, true) {
		return domain.ErrCheckInFlight
	}
	s.dispatch(r, t)
	return nil
}

// Pause stops dispatching new checks; timers keep running and ticks are
// skipped until Resume.
func (s *Scheduler) Pause()  { s.paused.Store(true) }
func (s *Scheduler) Resume() { s.paused.Store(false) }

// launch starts the per-target timer loop. Caller holds s.mu.
func (s *Scheduler) launch(r *runner) {
	r.ctx, r.cancel = context.WithCancel(s.ctx)
	s.wg.Add(1)
	go s.loop(r)
}

func (s *Scheduler) loop(r *runner) {
	defer s.wg.Done()

	t := r.target.Load()
	// first tick lands at a random offset within one interval so a burst of
	// added targets does not check in lockstep
	timer := time.NewTimer(initialJitter(t.Interval))
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			t = r.target.Load()
			timer.Reset(t.Interval)
		case <-timer.C:
			t = r.target.Load()
			timer.Reset(t.Interval)
			s.tick(r, t)
		}
	}
}

// tick is one timer firing. It claims the in-flight slot or skips.
func (s *Scheduler) tick(r *runner, t *domain.Target) {
	if s.paused.Load() || !t.Enabled {
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		// prior check outlived the interval; skipping is the invariant,
		// queuing would pile up
		s.logger.Warn("scheduler_tick_skipped",
			zap.String("target_id", string(t.ID)),
		)
		return
	}
	s.dispatch(r, t)
}

// dispatch runs the check pipeline on a worker goroutine. The caller has
// already claimed the in-flight slot.
func (s *Scheduler) dispatch(r *runner, t *domain.Target) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer r.inFlight.Store(false)

		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
			case <-r.ctx.Done():
				return
			}
			defer func() { <-s.sem }()
		}

		cctx, ccancel := context.WithCancel(r.ctx)
		r.setCheckCancel(ccancel)
		defer r.setCheckCancel(nil)
		defer ccancel()

		s.pub.Publish(events.CheckStarted, t.ID, nil)
		res := s.runCheck(cctx, t)

		if r.gone.Load() {
			// removed while the check ran; its result must not leak into
			// cache or events
			s.logger.Debug("scheduler_result_dropped", zap.String("target_id", string(t.ID)))
			return
		}
		s.pub.Publish(events.CheckCompleted, t.ID, events.CheckPayload{Result: *res})
		// detach from per-target cancellation so a result landing during a
		// graceful stop still reaches persistence
		s.sink.Apply(context.WithoutCancel(r.ctx), res)

		s.logger.Debug("scheduler_checked",
			zap.String("target_id", string(t.ID)),
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("latency", res.Latency),
			zap.Int("attempts", res.Attempts),
			zap.String("message", res.Message),
		)
	}()
}

// runCheck shields the scheduler from the pipeline: a panic or stray fault
// becomes an unreachable result, never a scheduler failure.
func (s *Scheduler) runCheck(ctx context.Context, t *domain.Target) (out *domain.CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("scheduler_check_panic",
				zap.String("target_id", string(t.ID)),
				zap.Any("panic", p),
			)
			out = &domain.CheckResult{
				TargetID:  t.ID,
				Outcome:   domain.Unreachable,
				Message:   fmt.Sprint(p),
				Attempts:  1,
				CheckedAt: time.Now().UTC(),
			}
		}
	}()
	res := s.checker.Check(ctx, t)
	res.TargetID = t.ID
	if res.CheckedAt.IsZero() {
		res.CheckedAt = time.Now().UTC()
	}
	return &res
}

func (r *runner) setCheckCancel(c context.CancelFunc) {
	r.mu.Lock()
	r.checkCancel = c
	r.mu.Unlock()
}

func (r *runner) cancelCheck() {
	r.mu.Lock()
	c := r.checkCancel
	r.mu.Unlock()
	if c != nil {
		c()
	}
}

func initialJitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(interval)))
}
