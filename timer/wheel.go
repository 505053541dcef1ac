package timer

import (
	"container/heap"
	"time"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/unison"
)

// wheelEntry is one scheduled occurrence, ordered by fire time in the
// WheelTimer's heap. period is 0 for a one-shot entry.
type wheelEntry struct {
	at     time.Time
	period time.Duration
	thunk  func()
	index  int
}

type entryHeap []*wheelEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) { e := x.(*wheelEntry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// WheelTimer runs every scheduled thunk on a single background goroutine,
// in fire-time order. Periodic scheduling uses fixed-delay semantics: the
// next fire time is the prior scheduled fire time plus period, so overrun
// is not compounded but also not corrected for — drift is bounded by how
// late the goroutine actually gets to run, same as a plain time.Timer.
type WheelTimer struct {
	mu      unison.Mutex
	entries entryHeap
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// NewWheelTimer starts the background goroutine and returns a WheelTimer
// ready to schedule work on.
func NewWheelTimer() *WheelTimer {
	w := &WheelTimer{
		mu:   unison.MakeMutex(),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *WheelTimer) run() {
	idle := time.NewTimer(time.Hour)
	idle.Stop()
	defer idle.Stop()

	for {
		w.mu.Lock()
		stopped := w.stopped
		var wait time.Duration
		hasNext := len(w.entries) > 0
		if hasNext {
			wait = time.Until(w.entries[0].at)
		}
		w.mu.Unlock()

		if stopped {
			return
		}

		if !hasNext {
			select {
			case <-w.wake:
				continue
			case <-w.done:
				return
			}
		}

		if wait < 0 {
			wait = 0
		}
		idle.Reset(wait)
		select {
		case <-idle.C:
			w.fireDue()
		case <-w.wake:
			if !idle.Stop() {
				<-idle.C
			}
		case <-w.done:
			if !idle.Stop() {
				<-idle.C
			}
			return
		}
	}
}

func (w *WheelTimer) fireDue() {
	now := time.Now()

	var due []*wheelEntry
	w.mu.Lock()
	for len(w.entries) > 0 && !w.entries[0].at.After(now) {
		e := heap.Pop(&w.entries).(*wheelEntry)
		due = append(due, e)
		if e.period > 0 {
			e.at = e.at.Add(e.period)
			heap.Push(&w.entries, e)
		}
	}
	w.mu.Unlock()

	for _, e := range due {
		e.thunk()
	}
}

func (w *WheelTimer) schedule(at time.Time, period time.Duration, thunk func()) future.TimerTask {
	e := &wheelEntry{at: at, period: period, thunk: recovering(thunk)}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return noopTask{}
	}
	heap.Push(&w.entries, e)
	isEarliest := w.entries[0] == e
	w.mu.Unlock()

	if isEarliest {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}

	return &wheelTask{timer: w, entry: e}
}

// Schedule runs thunk once, at the given instant.
func (w *WheelTimer) Schedule(at time.Time, thunk func()) future.TimerTask {
	return w.schedule(at, 0, thunk)
}

// ScheduleEvery runs thunk first at the given instant, then every period.
func (w *WheelTimer) ScheduleEvery(at time.Time, period time.Duration, thunk func()) future.TimerTask {
	return w.schedule(at, period, thunk)
}

// SchedulePeriodic runs thunk first one period from now, then every period.
func (w *WheelTimer) SchedulePeriodic(period time.Duration, thunk func()) future.TimerTask {
	return w.schedule(time.Now().Add(period), period, thunk)
}

// Stop halts the background goroutine and drops every pending entry.
// Scheduling after Stop returns a no-op task whose thunk never runs.
func (w *WheelTimer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.entries = nil
	w.mu.Unlock()
	close(w.done)
}

type wheelTask struct {
	timer *WheelTimer
	entry *wheelEntry
}

// Cancel removes the task if it is still pending. Cancelling after the
// task has fired, or more than once, is a no-op.
func (t *wheelTask) Cancel() {
	t.timer.mu.Lock()
	defer t.timer.mu.Unlock()
	if t.entry.index >= 0 {
		heap.Remove(&t.timer.entries, t.entry.index)
	}
}

// recovering wraps thunk so a panic inside a user callback cannot crash the
// timer's background goroutine; it is dropped rather than propagated, since
// a raw Schedule callback (unlike DoAt) has no associated Promise to
// capture it as a Throw.
func recovering(thunk func()) func() {
	return func() {
		defer func() { _ = recover() }()
		thunk()
	}
}

var _ Timer = (*WheelTimer)(nil)
