// Package timer provides the Timer contract used to impose deadlines
// (future.Within) and schedule deferred or periodic work (DoLater, DoAt),
// plus the production variants: an inline/null timer for deterministic
// tests, a single-background-thread wheel timer with fixed-delay periodic
// semantics, and a thread-pool-backed timer with fixed-rate periodic
// semantics. RefCountingTimer and ThreadStoppingTimer wrap any Timer to add
// reference-counted lifecycle and deadlock-free Stop, respectively.
//
// A deterministic test timer lives in the sibling timertest package.
package timer

import (
	"errors"
	"time"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/try"
)

// ErrStopped is returned (or, for Schedule, causes the scheduled thunk to
// never run) when scheduling is attempted on a Timer that has already been
// stopped.
var ErrStopped = errors.New("timer: stopped")

// Timer schedules thunks to run at a future instant, once or periodically,
// and returns a cancellable TimerTask for each. Timer satisfies
// future.Scheduler, so any Timer can be passed directly to future.Within.
type Timer interface {
	// Schedule runs thunk once, at the given instant.
	Schedule(at time.Time, thunk func()) future.TimerTask

	// ScheduleEvery runs thunk first at the given instant, then again every
	// period thereafter, until the returned TimerTask is cancelled or Stop
	// is called.
	ScheduleEvery(at time.Time, period time.Duration, thunk func()) future.TimerTask

	// SchedulePeriodic runs thunk first one period from now, then again
	// every period thereafter.
	SchedulePeriodic(period time.Duration, thunk func()) future.TimerTask

	// Stop releases the timer's resources. Scheduling after Stop is
	// unspecified per-variant: variants that can detect it return a task
	// whose thunk never runs; none of them panic.
	Stop()
}

// DoLater returns a Future that completes with the result of thunk, run on
// t after delay.
func DoLater[A any](t Timer, delay time.Duration, thunk func() (A, error)) future.Future[A] {
	return DoAt(t, time.Now().Add(delay), thunk)
}

// DoAt returns a Future that completes with the result of thunk, run on t
// at the given instant. Cancelling the Future cancels the scheduled task.
func DoAt[A any](t Timer, at time.Time, thunk func() (A, error)) future.Future[A] {
	p := future.Empty[A]()

	task := t.Schedule(at, func() {
		p.Update(try.Apply(thunk))
	})

	p.Future().OnCancellation(func() { task.Cancel() })

	return p.Future()
}

var _ future.Scheduler = Timer(nil)
