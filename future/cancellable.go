package future

// Cancellable is the capability set shared by anything that can be
// cancelled and that can propagate cancellation onward. It is implemented
// purely in terms of a waiter on a cancelled cell — there is no separate
// graph structure backing LinkTo; see state.cancelled in promise.go.
type Cancellable interface {
	// Cancel marks the receiver as cancelled. It is idempotent: calling it
	// more than once has the same effect as calling it exactly once.
	Cancel()

	// IsCancelled reports whether Cancel has been called.
	IsCancelled() bool

	// LinkTo arranges for other.Cancel() to run when the receiver is
	// cancelled. If the receiver is already cancelled, other.Cancel() runs
	// synchronously on the calling goroutine before LinkTo returns.
	LinkTo(other Cancellable)
}
