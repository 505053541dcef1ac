// Package future implements the Future/Promise combinator core: a
// composable, non-blocking result type whose callbacks run exactly once and
// whose cancellation signal flows across chained stages.
//
// A Promise owns two once-cells — result and cancelled — and Future is the
// read-facing method set over the same pair. Combinators build a graph of
// Promises connected by cancellation edges (waiters on cancelled) and by
// result forwarding (oncecell.Merge/Chained).
package future

import (
	"github.com/durgeshm/asyncore/oncecell"
	"github.com/durgeshm/asyncore/try"
)

// state is the shared storage behind both a Promise and the Futures derived
// from it; Promise and Future are thin, capability-restricted wrappers
// around the same *state.
type state[A any] struct {
	result    *oncecell.Cell[try.Try[A]]
	cancelled *oncecell.Cell[struct{}]
}

// Promise is the write-only side of an asynchronous computation.
type Promise[A any] struct {
	*state[A]
}

// Future is the read-facing view over a Promise: respond, poll, and the
// derived combinators in combinators.go.
type Future[A any] struct {
	*state[A]
}

// Empty creates a new, unfulfilled Promise.
func Empty[A any]() Promise[A] {
	return Promise[A]{&state[A]{
		result:    oncecell.New[try.Try[A]](),
		cancelled: oncecell.New[struct{}](),
	}}
}

// Of creates a Promise that is already complete with t.
func Of[A any](t try.Try[A]) Promise[A] {
	return Promise[A]{&state[A]{
		result:    oncecell.Filled(t),
		cancelled: oncecell.New[struct{}](),
	}}
}

// Future returns the read-facing view of p.
func (p Promise[A]) Future() Future[A] {
	return Future[A]{p.state}
}

// SetValue completes the promise successfully. It returns ErrImmutableResult
// if the promise was already complete.
func (p Promise[A]) SetValue(v A) error {
	return p.Update(try.Return(v))
}

// SetException completes the promise with a failure. It returns
// ErrImmutableResult if the promise was already complete.
func (p Promise[A]) SetException(err error) error {
	return p.Update(try.Throw[A](err))
}

// Update completes the promise with t, failing with ErrImmutableResult if
// the promise was already complete.
func (p Promise[A]) Update(t try.Try[A]) error {
	if !p.UpdateIfEmpty(t) {
		return ErrImmutableResult
	}
	return nil
}

// UpdateIfEmpty completes the promise with t if it is still empty, and
// reports whether it did. Across any number of concurrent callers, exactly
// one observes true.
func (p Promise[A]) UpdateIfEmpty(t try.Try[A]) bool {
	return p.result.Set(t)
}

// IsDefined reports whether the promise has completed.
func (p Promise[A]) IsDefined() bool {
	return p.result.IsDefined()
}

// Poll performs a non-blocking read of the promise's result.
func (p Promise[A]) Poll() (try.Try[A], bool) {
	return p.result.Poll()
}

// Cancel marks the promise (and, through it, its Future view) as cancelled.
// It does not complete the result; downstream code decides whether to
// observe cancellation by completing the result with a failure.
func (p Promise[A]) Cancel() {
	p.cancelled.Set(struct{}{})
}

// IsCancelled reports whether Cancel has been called.
func (p Promise[A]) IsCancelled() bool {
	return p.cancelled.IsDefined()
}

// LinkTo cancels other when p is cancelled.
func (p Promise[A]) LinkTo(other Cancellable) {
	p.cancelled.Get(func(struct{}) { other.Cancel() })
}

var _ Cancellable = Promise[int]{}
var _ Cancellable = Future[int]{}
