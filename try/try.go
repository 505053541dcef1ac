// Package try provides the Try[A] sum type: the result of a computation that
// either returned a value or threw an error. Future and Promise use Try as
// the value stored in their result cell; the combinators in package future
// are expressed in terms of Try's own Map/FlatMap/Filter so that exception
// capture only has to be written once.
package try

import "fmt"

// Try is either a Return(value) or a Throw(err). The zero value is a
// Return of the zero value of A, matching the convention used by Go's own
// (value, error) pairs where a nil error means the value is meaningful.
type Try[A any] struct {
	Value A
	Err   error
}

// Return builds a successful Try.
func Return[A any](v A) Try[A] {
	return Try[A]{Value: v}
}

// Throw builds a failed Try. Panics if err is nil, since a Throw without a
// cause is a programmer error, not a valid state.
func Throw[A any](err error) Try[A] {
	if err == nil {
		panic("try.Throw: nil error")
	}
	return Try[A]{Err: err}
}

// IsReturn reports whether the Try completed successfully.
func (t Try[A]) IsReturn() bool { return t.Err == nil }

// IsThrow reports whether the Try failed.
func (t Try[A]) IsThrow() bool { return t.Err != nil }

// Get unpacks the Try into the (value, error) shape idiomatic Go code
// expects at a boundary.
func (t Try[A]) Get() (A, error) {
	return t.Value, t.Err
}

func (t Try[A]) String() string {
	if t.IsThrow() {
		return fmt.Sprintf("Throw(%v)", t.Err)
	}
	return fmt.Sprintf("Return(%v)", t.Value)
}

// Apply runs thunk, capturing both a panic and a returned error into a Try,
// so that a thunk run through it cannot propagate a panic across a goroutine
// boundary it doesn't own (timer threads in particular). It is not the only
// place that recovers: FlatMap below has its own recover, and the timer
// package wraps raw scheduled thunks separately.
func Apply[A any](thunk func() (A, error)) (t Try[A]) {
	defer func() {
		if r := recover(); r != nil {
			var zero A
			t = Try[A]{Value: zero, Err: asError(r)}
		}
	}()

	v, err := thunk()
	if err != nil {
		return Try[A]{Err: err}
	}
	return Try[A]{Value: v}
}

func asError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// Map transforms a Return, passing a Throw through unchanged. Panics or
// errors raised by f are captured into a Throw.
func Map[A, B any](t Try[A], f func(A) (B, error)) Try[B] {
	if t.IsThrow() {
		return Try[B]{Err: t.Err}
	}
	return Apply(func() (B, error) { return f(t.Value) })
}

// FlatMap is Map for functions that already return a Try, used internally by
// future.FlatMap so a user's mapping function can itself fail without a
// nested Try[Try[B]].
func FlatMap[A, B any](t Try[A], f func(A) Try[B]) Try[B] {
	if t.IsThrow() {
		return Try[B]{Err: t.Err}
	}

	var out Try[B]
	func() {
		defer func() {
			if r := recover(); r != nil {
				out = Try[B]{Err: asError(r)}
			}
		}()
		out = f(t.Value)
	}()
	return out
}

// Filter turns a Return into a Throw(err) if pred(a) is false. A Return that
// satisfies pred, and any Throw, pass through unchanged.
func Filter[A any](t Try[A], pred func(A) bool, err error) Try[A] {
	if t.IsThrow() {
		return t
	}
	if !pred(t.Value) {
		return Try[A]{Err: err}
	}
	return t
}

// Rescue converts a Throw back into a Return if handler recognizes the
// error (returns ok == true); otherwise t is returned unchanged. A Return is
// always passed through untouched.
func Rescue[A any](t Try[A], handler func(error) (A, bool)) Try[A] {
	if t.IsReturn() {
		return t
	}
	if v, ok := handler(t.Err); ok {
		return Try[A]{Value: v}
	}
	return t
}
