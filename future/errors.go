package future

import (
	"errors"
	"fmt"
	"time"
)

// ErrImmutableResult is returned by Promise.Update when the promise's result
// has already been set once.
var ErrImmutableResult = errors.New("future: immutable result: promise already completed")

// TimeoutError is the Throw value Within uses when its deadline elapses
// before the input Future completes. Future.Get does not use it: an elapsed
// Get timeout is returned as context.DeadlineExceeded.
type TimeoutError struct {
	Duration time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("future: timeout after %s", e.Duration)
}

// ErrTimeout lets callers use errors.Is(err, future.ErrTimeout) without
// knowing the exact duration carried by a TimeoutError.
var ErrTimeout = TimeoutError{}

func (e TimeoutError) Is(target error) bool {
	_, ok := target.(TimeoutError)
	return ok
}
