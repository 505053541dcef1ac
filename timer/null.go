package timer

import (
	"time"

	"github.com/durgeshm/asyncore/future"
)

// NullTimer runs every scheduled thunk synchronously, on the calling
// goroutine, the instant it is scheduled — "eventually" means "immediately".
// It is meant for deterministic tests that don't want to depend on wall
// clock timing at all; MockTimer (package timertest) is the timer to reach
// for when a test needs to control exactly which instant "now" is.
type NullTimer struct{}

// NewNullTimer returns a NullTimer. Its zero value is already usable; the
// constructor exists for symmetry with the other variants.
func NewNullTimer() *NullTimer { return &NullTimer{} }

type noopTask struct{}

func (noopTask) Cancel() {}

func (NullTimer) Schedule(_ time.Time, thunk func()) future.TimerTask {
	thunk()
	return noopTask{}
}

func (NullTimer) ScheduleEvery(_ time.Time, _ time.Duration, thunk func()) future.TimerTask {
	thunk()
	return noopTask{}
}

func (NullTimer) SchedulePeriodic(_ time.Duration, thunk func()) future.TimerTask {
	thunk()
	return noopTask{}
}

func (NullTimer) Stop() {}

var _ Timer = NullTimer{}
