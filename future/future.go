package future

import (
	"context"
	"sync"
	"time"

	"github.com/durgeshm/asyncore/ctxtool"
	"github.com/durgeshm/asyncore/try"
)

// Value returns an already-successful Future.
func Value[A any](v A) Future[A] {
	return Of(try.Return(v)).Future()
}

// Exception returns an already-failed Future.
func Exception[A any](err error) Future[A] {
	return Of(try.Throw[A](err)).Future()
}

// Unit is an already-successful Future[struct{}], used as the completion
// signal of combinators that don't carry a value (Join, Times, WhileDo).
func Unit() Future[struct{}] {
	return Value(struct{}{})
}

// Apply runs thunk and returns a Future already completed with its result,
// capturing any panic or returned error into a Throw.
func Apply[A any](thunk func() (A, error)) Future[A] {
	return Of(try.Apply(thunk)).Future()
}

// Poll performs a non-blocking read of the future's result.
func (f Future[A]) Poll() (try.Try[A], bool) {
	return f.result.Poll()
}

// IsDefined reports whether the future has completed.
func (f Future[A]) IsDefined() bool {
	return f.result.IsDefined()
}

// Cancel marks the future (and its backing promise) as cancelled.
func (f Future[A]) Cancel() {
	f.cancelled.Set(struct{}{})
}

// IsCancelled reports whether Cancel has been called.
func (f Future[A]) IsCancelled() bool {
	return f.cancelled.IsDefined()
}

// LinkTo cancels other when f is cancelled.
func (f Future[A]) LinkTo(other Cancellable) {
	f.cancelled.Get(func(struct{}) { other.Cancel() })
}

// OnCancellation runs thunk when f is cancelled; it is equivalent to
// linking a Cancellable whose Cancel runs thunk.
func (f Future[A]) OnCancellation(thunk func()) {
	f.cancelled.Get(func(struct{}) { thunk() })
}

// Respond registers k to run exactly once against the future's result,
// synchronously on whichever goroutine completes it (or immediately, on the
// calling goroutine, if f is already complete). It returns a chained Future
// sharing f's cancellation state, so further combinators can be attached
// without growing the waiter chain beyond O(1) per link.
func (f Future[A]) Respond(k func(try.Try[A])) Future[A] {
	chained := f.result.Chained()
	f.result.Get(func(t try.Try[A]) {
		dispatch(func() { k(t) })
	})
	return Future[A]{&state[A]{result: chained, cancelled: f.cancelled}}
}

// Get blocks until the future completes or timeout elapses, whichever
// happens first.
func (f Future[A]) Get(timeout time.Duration) (try.Try[A], error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.GetContext(ctx)
}

// GetContext blocks until the future completes or ctx is done.
func (f Future[A]) GetContext(ctx context.Context) (try.Try[A], error) {
	return f.result.Wait(ctx)
}

// AsContext exposes f's cancellation as a context.Context: Done() closes
// and Err() reports context.Canceled once f is cancelled or completes with
// a Throw. It never carries a deadline or values, matching ctxtool's own
// minimal canceller contexts.
func (f Future[A]) AsContext() context.Context {
	fc := &futureCanceller{ch: make(chan struct{})}

	fire := func() {
		select {
		case <-fc.ch:
		default:
			close(fc.ch)
		}
	}
	f.OnCancellation(fire)
	f.Respond(func(t try.Try[A]) {
		if t.IsThrow() {
			fc.setErr(t.Err)
			fire()
		}
	})
	return ctxtool.FromCanceller(fc)
}

// futureCanceller is the minimal Done/Err shape ctxtool.FromCanceller wraps
// into a full context.Context, so AsContext doesn't need its own Deadline/
// Value boilerplate.
type futureCanceller struct {
	ch  chan struct{}
	mu  sync.Mutex
	err error
}

func (c *futureCanceller) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *futureCanceller) Done() <-chan struct{} { return c.ch }

func (c *futureCanceller) Err() error {
	select {
	case <-c.ch:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.err != nil {
			return c.err
		}
		return context.Canceled
	default:
		return nil
	}
}

// dispatch is the single point through which every user-supplied callback
// registered via Respond is invoked. It exists so that the context-snapshot
// capability (see snapshot.go) has one place to wrap every dispatch.
func dispatch(run func()) {
	restore := captureSnapshot()
	defer restore()
	run()
}
