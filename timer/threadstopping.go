package timer

import (
	"sync"
	"time"

	"github.com/durgeshm/asyncore/future"
)

// ThreadStoppingTimer wraps an underlying Timer so that Stop never blocks
// the calling goroutine. This matters when a scheduled thunk running on the
// underlying timer's own worker — e.g. a PoolTimer thunk, running inside
// that PoolTimer's errgroup — calls Stop on the very timer it is running
// on: a blocking Stop would join against its own goroutine and deadlock.
// Dispatching the actual stop to a dedicated auxiliary goroutine lets the
// calling goroutine return immediately regardless of who called it.
type ThreadStoppingTimer struct {
	inner Timer
	once  sync.Once
}

// NewThreadStoppingTimer wraps inner.
func NewThreadStoppingTimer(inner Timer) *ThreadStoppingTimer {
	return &ThreadStoppingTimer{inner: inner}
}

// Schedule delegates to the underlying Timer.
func (t *ThreadStoppingTimer) Schedule(at time.Time, thunk func()) future.TimerTask {
	return t.inner.Schedule(at, thunk)
}

// ScheduleEvery delegates to the underlying Timer.
func (t *ThreadStoppingTimer) ScheduleEvery(at time.Time, period time.Duration, thunk func()) future.TimerTask {
	return t.inner.ScheduleEvery(at, period, thunk)
}

// SchedulePeriodic delegates to the underlying Timer.
func (t *ThreadStoppingTimer) SchedulePeriodic(period time.Duration, thunk func()) future.TimerTask {
	return t.inner.SchedulePeriodic(period, thunk)
}

// Stop triggers the underlying Timer's Stop on a dedicated goroutine,
// exactly once, and returns immediately without waiting for it to finish.
func (t *ThreadStoppingTimer) Stop() {
	t.once.Do(func() {
		go t.inner.Stop()
	})
}

var _ Timer = (*ThreadStoppingTimer)(nil)
