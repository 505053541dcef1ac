package timer

import (
	"log"
	"time"

	concert "github.com/durgeshm/asyncore"
	"github.com/durgeshm/asyncore/future"
)

// RefCountingTimer shares one underlying Timer across any number of holders.
// The underlying Timer is built by factory once, inside NewRefCountingTimer,
// not on the first Acquire; after the last reference is released it is not
// rebuilt, and a later Acquire panics (concert.RefCount.Retain on a freed
// count). Construction counts as the first implicit
// reference — matching concert.RefCount's own zero-value convention, where
// a fresh RefCount already represents one held reference — so a
// RefCountingTimer with no extra Acquire calls is freed by its first Stop.
// Each additional Acquire must be matched by exactly one Stop.
type RefCountingTimer struct {
	inner Timer
	ref   concert.RefCount
}

// NewRefCountingTimer constructs the underlying Timer via factory and
// returns a RefCountingTimer holding the first reference to it.
func NewRefCountingTimer(factory func() Timer) *RefCountingTimer {
	t := &RefCountingTimer{inner: factory()}
	t.ref.Action = func() { t.inner.Stop() }
	return t
}

// Acquire takes an additional reference on the shared Timer and returns it.
// The caller must call Stop exactly once to release the reference it took.
func (t *RefCountingTimer) Acquire() Timer {
	t.ref.Retain()
	return t.inner
}

// Schedule delegates to the shared underlying Timer.
func (t *RefCountingTimer) Schedule(at time.Time, thunk func()) future.TimerTask {
	return t.inner.Schedule(at, thunk)
}

// ScheduleEvery delegates to the shared underlying Timer.
func (t *RefCountingTimer) ScheduleEvery(at time.Time, period time.Duration, thunk func()) future.TimerTask {
	return t.inner.ScheduleEvery(at, period, thunk)
}

// SchedulePeriodic delegates to the shared underlying Timer.
func (t *RefCountingTimer) SchedulePeriodic(period time.Duration, thunk func()) future.TimerTask {
	return t.inner.SchedulePeriodic(period, thunk)
}

// Stop releases one reference — the implicit one from construction, or one
// taken by Acquire. The underlying Timer is stopped once every reference
// has been released. A Stop with no matching Acquire is a programmer error,
// but unlike concert.RefCount.Release's own panic, it is not allowed to
// bring down the caller: it is treated as a no-op and logged instead.
func (t *RefCountingTimer) Stop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("timer: RefCountingTimer.Stop called without a matching Acquire: %v", r)
		}
	}()
	t.ref.Release()
}

var _ Timer = (*RefCountingTimer)(nil)
