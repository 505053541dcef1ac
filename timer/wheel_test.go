package timer_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/durgeshm/asyncore/timer"
)

func TestWheelTimerFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	wt := timer.NewWheelTimer()
	defer wt.Stop()

	done := make(chan struct{})
	wt.Schedule(time.Now().Add(10*time.Millisecond), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
}

func TestWheelTimerFiresInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	wt := timer.NewWheelTimer()
	defer wt.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)

	now := time.Now()
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			wg.Done()
		}
	}
	wt.Schedule(now.Add(30*time.Millisecond), record(3))
	wt.Schedule(now.Add(10*time.Millisecond), record(1))
	wt.Schedule(now.Add(20*time.Millisecond), record(2))

	wg.Wait()
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestWheelTimerCancelPreventsFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	wt := timer.NewWheelTimer()
	defer wt.Stop()

	var fired atomic.Bool
	task := wt.Schedule(time.Now().Add(30*time.Millisecond), func() { fired.Store(true) })
	task.Cancel()

	time.Sleep(80 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestWheelTimerScheduleEveryFixedDelay(t *testing.T) {
	defer goleak.VerifyNone(t)

	wt := timer.NewWheelTimer()
	defer wt.Stop()

	var count atomic.Int32
	task := wt.ScheduleEvery(time.Now(), 15*time.Millisecond, func() { count.Add(1) })
	time.Sleep(80 * time.Millisecond)
	task.Cancel()

	n := count.Load()
	require.GreaterOrEqual(t, n, int32(3))
}

func TestWheelTimerStopDropsPendingWork(t *testing.T) {
	wt := timer.NewWheelTimer()

	var fired atomic.Bool
	wt.Schedule(time.Now().Add(50*time.Millisecond), func() { fired.Store(true) })
	wt.Stop()

	time.Sleep(100 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestWheelTimerScheduleAfterStopIsNoop(t *testing.T) {
	wt := timer.NewWheelTimer()
	wt.Stop()

	var fired atomic.Bool
	task := wt.Schedule(time.Now(), func() { fired.Store(true) })
	task.Cancel()

	time.Sleep(20 * time.Millisecond)
	require.False(t, fired.Load())
}
