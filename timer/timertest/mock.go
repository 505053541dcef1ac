// Package timertest provides MockTimer, a deterministic timer.Timer driven
// by an explicit logical clock instead of wall time, for tests that need to
// control exactly when scheduled work fires.
package timertest

import (
	"errors"
	"sync"
	"time"

	concert "github.com/durgeshm/asyncore"
	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/timer"
)

// ErrStopped is returned by Tick once Stop has been called.
var ErrStopped = errors.New("timertest: timer stopped")

// ErrPeriodicUnsupported is the panic value raised by ScheduleEvery and
// SchedulePeriodic: MockTimer only models one-shot scheduling. Those two
// methods exist to satisfy timer.Timer but have no error return in that
// interface to report the condition through, so misuse panics instead —
// the same convention the teacher's own concert.RefCount and concert.Barrier
// use for programmer-error conditions.
var ErrPeriodicUnsupported = errors.New("timertest: periodic scheduling not supported")

type mockTask struct {
	at    time.Time
	thunk func()
}

// MockTimer stores pending one-shot tasks as (fireAt, thunk) pairs and only
// ever fires them in response to an explicit Tick call.
type MockTimer struct {
	mu      sync.Mutex
	tasks   []*mockTask
	stopped bool
}

// NewMockTimer returns an empty MockTimer.
func NewMockTimer() *MockTimer {
	return &MockTimer{}
}

// Schedule records thunk to fire on the next Tick(now) where now is not
// before at.
func (m *MockTimer) Schedule(at time.Time, thunk func()) future.TimerTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return noopTask{}
	}

	t := &mockTask{at: at, thunk: thunk}
	m.tasks = append(m.tasks, t)
	return &mockTaskHandle{timer: m, task: t}
}

// ScheduleEvery always panics with ErrPeriodicUnsupported.
func (m *MockTimer) ScheduleEvery(time.Time, time.Duration, func()) future.TimerTask {
	panic(ErrPeriodicUnsupported)
}

// SchedulePeriodic always panics with ErrPeriodicUnsupported.
func (m *MockTimer) SchedulePeriodic(time.Duration, func()) future.TimerTask {
	panic(ErrPeriodicUnsupported)
}

// Stop marks the timer stopped; subsequent Tick calls return ErrStopped.
func (m *MockTimer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Tick advances the timer's logical clock to now: every pending task whose
// fire time is not after now runs, in the order it was scheduled, and is
// then removed from the pending set. A cancelled task is never in the
// pending set to begin with — Cancel prunes it immediately, not on the next
// Tick. Tasks whose fire time is still ahead of now stay pending. Tick
// returns ErrStopped if Stop has been called.
func (m *MockTimer) Tick(now time.Time) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}

	var due, pending []*mockTask
	for _, t := range m.tasks {
		if !t.at.After(now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	m.tasks = pending
	m.mu.Unlock()

	for _, t := range due {
		t.thunk()
	}
	return nil
}

// TickConcurrent is Tick's concurrent counterpart: due tasks run in their own
// goroutine instead of one after another, with at most maxConcurrency running
// at once, bounded by a concert.Semaphore. Use it to test code that must
// tolerate its timer callbacks firing in parallel; Tick's scheduled-order
// guarantee does not hold here. TickConcurrent returns once every due task
// launched by this call has finished.
func (m *MockTimer) TickConcurrent(now time.Time, maxConcurrency int) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}

	var due, pending []*mockTask
	for _, t := range m.tasks {
		if !t.at.After(now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	m.tasks = pending
	m.mu.Unlock()

	// concert.Semaphore admits n-1 concurrent holders, hence the +1.
	sem := concert.NewSemaphore(maxConcurrency + 1)
	var wg sync.WaitGroup
	wg.Add(len(due))
	for _, t := range due {
		t := t
		sem.Acquire()
		go func() {
			defer wg.Done()
			defer sem.Release()
			t.thunk()
		}()
	}
	wg.Wait()
	return nil
}

// Pending reports how many tasks are scheduled and not yet fired. Cancelled
// tasks are removed immediately by Cancel, so Pending reflects cancellation
// without waiting for a Tick.
func (m *MockTimer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type noopTask struct{}

func (noopTask) Cancel() {}

type mockTaskHandle struct {
	timer *MockTimer
	task  *mockTask
}

// Cancel removes the task from the pending set immediately; observers
// (Pending, a subsequent Tick) see it gone without waiting for a Tick.
// Cancelling a task that has already fired or was already cancelled is a
// no-op.
func (h *mockTaskHandle) Cancel() {
	h.timer.mu.Lock()
	defer h.timer.mu.Unlock()

	tasks := h.timer.tasks
	for i, t := range tasks {
		if t == h.task {
			h.timer.tasks = append(tasks[:i:i], tasks[i+1:]...)
			return
		}
	}
}

var _ timer.Timer = (*MockTimer)(nil)
