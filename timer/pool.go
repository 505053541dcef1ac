package timer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/unison"
)

// PoolTimer fires scheduled tasks concurrently, each on its own goroutine
// drawn from a bounded pool, rather than serializing them behind a single
// background thread the way WheelTimer does. Periodic scheduling uses
// fixed-rate semantics: the n-th fire is initial + n*period regardless of
// how long prior runs took, so a slow thunk doesn't push later fires later
// — it can, however, cause two occurrences of the same periodic task to run
// concurrently with each other if it overruns its period; the pool's
// admission semaphore bounds total concurrency, not per-task concurrency.
type PoolTimer struct {
	sem   *semaphore.Weighted
	group *errgroup.Group

	// gate admits a fired thunk into the group: Add fails once Stop has
	// called gate.Wait, so a task whose timer fires racing with Stop simply
	// never runs, and gate.Wait (called directly by Stop) blocks until every
	// already-admitted thunk has returned.
	gate unison.SafeWaitGroup

	// active broadcasts the current number of running thunks, for callers
	// that want to observe pool load without polling; it carries no
	// backpressure, so a burst of admissions between two Wait calls only
	// ever shows the most recent count.
	active *unison.Cell

	mu      sync.Mutex
	running int
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPoolTimer returns a PoolTimer backed by a pool of at most maxConcurrent
// simultaneously running thunks.
func NewPoolTimer(maxConcurrent int64) *PoolTimer {
	base, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(base)
	return &PoolTimer{
		sem:    semaphore.NewWeighted(maxConcurrent),
		group:  group,
		active: unison.NewCell(0),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Active returns the number of thunks currently running.
func (p *PoolTimer) Active() int {
	return p.active.Get().(int)
}

func (p *PoolTimer) adjustRunning(delta int) {
	p.mu.Lock()
	p.running += delta
	n := p.running
	p.mu.Unlock()
	p.active.Set(n)
}

// run admits thunk into the pool's errgroup, bounded by the semaphore, and
// returns immediately; the caller does not wait for thunk to finish.
func (p *PoolTimer) run(thunk func()) {
	if err := p.gate.Add(1); err != nil {
		return
	}
	p.group.Go(func() error {
		defer p.gate.Done()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return nil
		}
		defer p.sem.Release(1)

		p.adjustRunning(1)
		defer p.adjustRunning(-1)

		thunk()
		return nil
	})
}

func (p *PoolTimer) scheduleAt(at time.Time, thunk func()) *poolTask {
	task := &poolTask{}
	task.timer = time.AfterFunc(time.Until(at), func() {
		if task.isCancelled() {
			return
		}
		p.run(recovering(thunk))
	})
	return task
}

// Schedule runs thunk once, on a pool goroutine, at the given instant.
func (p *PoolTimer) Schedule(at time.Time, thunk func()) future.TimerTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return noopTask{}
	}
	return p.scheduleAt(at, thunk)
}

// ScheduleEvery runs thunk first at the given instant, then every period,
// at fixed rate.
func (p *PoolTimer) ScheduleEvery(at time.Time, period time.Duration, thunk func()) future.TimerTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return noopTask{}
	}

	task := &poolTask{}
	var schedule func(n int)
	schedule = func(n int) {
		next := at.Add(time.Duration(n) * period)
		task.setTimer(time.AfterFunc(time.Until(next), func() {
			if task.isCancelled() {
				return
			}
			p.run(recovering(thunk))
			p.mu.Lock()
			stopped := p.stopped
			p.mu.Unlock()
			if !stopped {
				schedule(n + 1)
			}
		}))
	}
	schedule(0)
	return task
}

// SchedulePeriodic runs thunk first one period from now, then every
// period, at fixed rate.
func (p *PoolTimer) SchedulePeriodic(period time.Duration, thunk func()) future.TimerTask {
	return p.ScheduleEvery(time.Now().Add(period), period, thunk)
}

// Stop refuses any further scheduling and blocks until every thunk that has
// already started running has finished; a thunk that was admitted but was
// still waiting on the semaphore for a free worker slot is dropped rather
// than run, and tasks still waiting for their fire time are cancelled
// rather than waited for.
func (p *PoolTimer) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.gate.Wait()
	_ = p.group.Wait()
}

type poolTask struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func (t *poolTask) setTimer(timer *time.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		timer.Stop()
		return
	}
	t.timer = timer
}

func (t *poolTask) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Cancel prevents any future fire of the task. A fire already admitted to
// the pool (running or queued on the semaphore) completes regardless.
func (t *poolTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

var _ Timer = (*PoolTimer)(nil)
