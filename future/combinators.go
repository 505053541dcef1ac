package future

import (
	"sync"
	"time"

	"github.com/durgeshm/asyncore/try"
)

// Map transforms a successful result with fn; a Throw passes through
// unchanged. It is defined in terms of FlatMap, matching map(f) ≡
// flatMap(a => Future(f(a))).
func Map[A, B any](f Future[A], fn func(A) (B, error)) Future[B] {
	return FlatMap(f, func(a A) Future[B] {
		return Of(try.Apply(func() (B, error) { return fn(a) })).Future()
	})
}

// FlatMap sequences f with fn, which itself returns a Future. Cancellation
// of the result only ever targets the currently pending parent: while
// waiting on f, cancelling the result cancels f; once f resolves and fn's
// Future takes over, the waiter on f is removed (unget) and a fresh waiter
// targets fn's Future instead. The returned Future's result cell is merged
// with fn's Future rather than forwarded step by step, which is what keeps
// an iteratively built chain at O(1) per link — see oncecell.Cell.Merge.
func FlatMap[A, B any](f Future[A], fn func(A) Future[B]) Future[B] {
	p := Empty[B]()

	parentWaiter := p.cancelled.Get(func(struct{}) { f.Cancel() })

	f.Respond(func(t try.Try[A]) {
		p.cancelled.Unget(parentWaiter)

		if t.IsThrow() {
			p.SetException(t.Err)
			return
		}

		next := try.Apply(func() (Future[B], error) { return fn(t.Value), nil })
		if next.IsThrow() {
			p.SetException(next.Err)
			return
		}

		inner := next.Value
		p.result.Merge(inner.result)
		p.cancelled.Get(func(struct{}) { inner.Cancel() })
	})

	return p.Future()
}

// Rescue handles selected Throws, converting them back into a Return; a
// Return passes through unchanged, and a Throw handler declines by
// returning ok == false. It follows the same parent-cancellation policy as
// FlatMap.
func Rescue[A any](f Future[A], handler func(error) (Future[A], bool)) Future[A] {
	p := Empty[A]()
	parentWaiter := p.cancelled.Get(func(struct{}) { f.Cancel() })

	f.Respond(func(t try.Try[A]) {
		p.cancelled.Unget(parentWaiter)

		if t.IsReturn() {
			p.SetValue(t.Value)
			return
		}

		handled := try.Apply(func() (Future[A], error) {
			next, ok := handler(t.Err)
			if !ok {
				return Future[A]{}, t.Err
			}
			return next, nil
		})
		if handled.IsThrow() {
			p.SetException(handled.Err)
			return
		}

		inner := handled.Value
		p.result.Merge(inner.result)
		p.cancelled.Get(func(struct{}) { inner.Cancel() })
	})

	return p.Future()
}

// Recover is a total form of Rescue: fn cannot itself fail, so the result
// always succeeds.
func Recover[A any](f Future[A], fn func(error) A) Future[A] {
	return Rescue(f, func(err error) (Future[A], bool) {
		return Value(fn(err)), true
	})
}

// Filter keeps a successful result only if pred accepts it, turning a
// rejected value into a Throw(err).
func Filter[A any](f Future[A], pred func(A) bool, err error) Future[A] {
	return FlatMap(f, func(a A) Future[A] {
		if pred(a) {
			return Value(a)
		}
		return Exception[A](err)
	})
}

// Ensure runs thunk exactly once when f completes, regardless of
// Return/Throw, and returns a Future equivalent to f.
func Ensure[A any](f Future[A], thunk func()) Future[A] {
	return f.Respond(func(try.Try[A]) { thunk() })
}

// Pair is the result of Join2: the paired success values of two Futures.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Join2 completes with both values once fa and fb both succeed; the first
// of the two to fail wins and the result fails with that error. Cancelling
// the result cancels both inputs.
func Join2[A, B any](fa Future[A], fb Future[B]) Future[Pair[A, B]] {
	p := Empty[Pair[A, B]]()

	var mu sync.Mutex
	var ra try.Try[A]
	var rb try.Try[B]
	var haveA, haveB bool

	maybeComplete := func() {
		mu.Lock()
		ready := haveA && haveB
		va, vb := ra.Value, rb.Value
		mu.Unlock()
		if ready {
			p.SetValue(Pair[A, B]{First: va, Second: vb})
		}
	}

	fa.Respond(func(t try.Try[A]) {
		mu.Lock()
		ra, haveA = t, true
		mu.Unlock()
		if t.IsThrow() {
			p.SetException(t.Err)
			return
		}
		maybeComplete()
	})
	fb.Respond(func(t try.Try[B]) {
		mu.Lock()
		rb, haveB = t, true
		mu.Unlock()
		if t.IsThrow() {
			p.SetException(t.Err)
			return
		}
		maybeComplete()
	})

	p.cancelled.Get(func(struct{}) {
		fa.Cancel()
		fb.Cancel()
	})

	return p.Future()
}

// Collect completes with a fixed-order slice of every input's successful
// value, once all inputs have succeeded; it fails on the first Throw to
// arrive, and cancelling the result cancels every input.
func Collect[A any](fs []Future[A]) Future[[]A] {
	p := Empty[[]A]()

	n := len(fs)
	if n == 0 {
		p.SetValue([]A{})
		return p.Future()
	}

	results := make([]A, n)
	var mu sync.Mutex
	remaining := n

	for i, f := range fs {
		i, f := i, f
		f.Respond(func(t try.Try[A]) {
			if t.IsThrow() {
				p.SetException(t.Err)
				return
			}

			mu.Lock()
			results[i] = t.Value
			remaining--
			done := remaining == 0
			out := results
			mu.Unlock()

			if done {
				p.SetValue(out)
			}
		})
	}

	p.cancelled.Get(func(struct{}) {
		for _, f := range fs {
			f.Cancel()
		}
	})

	return p.Future()
}

// JoinAll completes with Unit once every input has succeeded, failing on
// the first Throw. It shares Collect's linking policy (every input is
// cancelled if the result is).
func JoinAll[A any](fs []Future[A]) Future[struct{}] {
	return Map(Collect(fs), func([]A) (struct{}, error) { return struct{}{}, nil })
}

// WhenAll is an alias of JoinAll.
func WhenAll[A any](fs []Future[A]) Future[struct{}] {
	return JoinAll(fs)
}

// SelectResult is the outcome of Select: the first Future to complete, and
// every other input Future, with order preserved and the winner excluded.
type SelectResult[A any] struct {
	Winner    try.Try[A]
	Remaining []Future[A]
}

// Select completes as soon as the first of fs completes, with the winner's
// result and the remaining Futures (winner excluded, order preserved).
// Linking is O(N): every input is cancelled if the result is.
func Select[A any](fs []Future[A]) Future[SelectResult[A]] {
	p := Empty[SelectResult[A]]()
	var once sync.Once

	for i, f := range fs {
		i := i
		f.Respond(func(t try.Try[A]) {
			once.Do(func() {
				remaining := make([]Future[A], 0, len(fs)-1)
				for j, other := range fs {
					if j != i {
						remaining = append(remaining, other)
					}
				}
				p.SetValue(SelectResult[A]{Winner: t, Remaining: remaining})
			})
		})
	}

	p.cancelled.Get(func(struct{}) {
		for _, f := range fs {
			f.Cancel()
		}
	})

	return p.Future()
}

// WhenAny is an alias of Select.
func WhenAny[A any](fs []Future[A]) Future[SelectResult[A]] {
	return Select(fs)
}

// scheduler is the minimal capability Within needs from a Timer: schedule a
// cancellable one-shot task at a future instant. A concrete timer.Timer
// satisfies this structurally, without future importing the timer package
// (which itself depends on future for DoLater/DoAt).
type scheduler interface {
	Schedule(at time.Time, thunk func()) timerTask
}

type timerTask interface {
	Cancel()
}

// Scheduler is the exported form of scheduler, for callers outside this
// package constructing their own Timer-like type.
type Scheduler = scheduler

// TimerTask is the exported form of timerTask.
type TimerTask = timerTask

// Within returns a Future that fails with a TimeoutError if f has not
// completed within d, and otherwise completes with f's result; if f
// completes first, the scheduled timeout task is cancelled.
func Within[A any](f Future[A], sched Scheduler, d time.Duration) Future[A] {
	p := Empty[A]()

	task := sched.Schedule(time.Now().Add(d), func() {
		p.UpdateIfEmpty(try.Throw[A](TimeoutError{Duration: d}))
	})

	f.Respond(func(t try.Try[A]) {
		task.Cancel()
		p.Update(t)
	})

	p.cancelled.Get(func(struct{}) { f.Cancel() })

	return p.Future()
}

// Times runs fn sequentially for i in [0, n), each step waiting for the
// previous step's Future, and completes with Unit once all n have run. The
// chain is built with a plain for loop rather than recursion so that the
// call stack stays flat regardless of n — what grows (or, with chained
// merging, doesn't) is the Promise graph, not the Go stack.
func Times(n int, fn func(i int) Future[struct{}]) Future[struct{}] {
	result := Unit()
	for i := 0; i < n; i++ {
		i := i
		result = FlatMap(result, func(struct{}) Future[struct{}] {
			return fn(i)
		})
	}
	return result
}

// WhileDo repeatedly runs fn for as long as pred() is true, checking pred
// again only after the previous fn() has completed, and completes with Unit
// once pred() is false. Unlike Times, the iteration count isn't known ahead
// of time, so the chain can't be unrolled into a flat loop: each step
// recurses into WhileDo from inside the previous step's FlatMap callback.
// When fn completes synchronously this recurses on the Go call stack like
// any other tail-recursive traversal; when it completes asynchronously the
// recursion continues on whichever goroutine completes it, not on the
// caller's stack at all.
func WhileDo(pred func() bool, fn func() Future[struct{}]) Future[struct{}] {
	if !pred() {
		return Unit()
	}
	return FlatMap(fn(), func(struct{}) Future[struct{}] {
		return WhileDo(pred, fn)
	})
}
