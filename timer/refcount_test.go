package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/timer"
)

func TestRefCountingTimerFirstStopFreesWithNoAcquire(t *testing.T) {
	var stopped bool
	rc := timer.NewRefCountingTimer(func() timer.Timer {
		return fakeTimer{stop: func() { stopped = true }}
	})

	rc.Stop()
	require.True(t, stopped)
}

func TestRefCountingTimerRequiresOneStopPerAcquire(t *testing.T) {
	var stopped bool
	rc := timer.NewRefCountingTimer(func() timer.Timer {
		return fakeTimer{stop: func() { stopped = true }}
	})

	rc.Acquire()
	rc.Stop()
	require.False(t, stopped, "one extra Acquire needs a matching Stop before it frees")

	rc.Stop()
	require.True(t, stopped)
}

func TestRefCountingTimerOverReleaseIsNoop(t *testing.T) {
	var stops int
	rc := timer.NewRefCountingTimer(func() timer.Timer {
		return fakeTimer{stop: func() { stops++ }}
	})
	rc.Stop()
	require.Equal(t, 1, stops)

	require.NotPanics(t, func() { rc.Stop() })
	require.Equal(t, 1, stops, "an unmatched Stop must not re-run the underlying Timer's Stop")
}

func TestRefCountingTimerDelegatesScheduling(t *testing.T) {
	nt := timer.NewNullTimer()
	rc := timer.NewRefCountingTimer(func() timer.Timer { return nt })
	defer rc.Stop()

	var ran bool
	rc.Schedule(time.Now(), func() { ran = true })
	require.True(t, ran)
}

type fakeTimer struct {
	stop func()
}

func (fakeTimer) Schedule(time.Time, func()) future.TimerTask { return nil }
func (fakeTimer) ScheduleEvery(time.Time, time.Duration, func()) future.TimerTask {
	return nil
}
func (fakeTimer) SchedulePeriodic(time.Duration, func()) future.TimerTask { return nil }
func (f fakeTimer) Stop()                                                 { f.stop() }
