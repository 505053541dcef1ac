package future

import (
	"sync"

	"github.com/google/uuid"

	"github.com/durgeshm/asyncore/unison"
)

// Snapshotter is a hook around the dispatch of every Respond callback, for
// ambient, host-defined state (request IDs, tracing spans, anything a host
// system keeps outside the Future graph). Snapshot is called on the goroutine
// that dispatches the callback, immediately before it runs; the state is not
// captured when the callback is registered with Respond, so state of the
// registering goroutine is not carried over to a different dispatching
// goroutine. The set of things worth snapshotting is intentionally left to
// the host: register whatever Snapshotter your system needs with
// RegisterSnapshotter.
type Snapshotter interface {
	// Snapshot is called immediately before a dispatched callback runs and
	// returns a function that is called once, right after the callback has
	// returned — this package does not interpret the returned func beyond
	// calling it once.
	Snapshot() func()
}

type namedSnapshotter struct {
	key string
	s   Snapshotter
}

var (
	// snapshotLocks gives every registered snapshotter its own key in the
	// lock manager, so two goroutines dispatching Respond callbacks at the
	// same time never run the same hook's Snapshot/restore pair
	// concurrently with each other, while unrelated hooks still run fully
	// in parallel.
	snapshotLocks = unison.NewLockManager()

	snapshottersMu sync.RWMutex
	snapshotters   []namedSnapshotter
)

// RegisterSnapshotter adds s under an opaque, process-unique key, so that
// two independently compiled packages registering snapshotters can never
// collide on the same lock-manager key. Intended to be called once at
// process startup; it is safe to call concurrently with dispatch.
func RegisterSnapshotter(s Snapshotter) {
	RegisterNamedSnapshotter(uuid.NewString(), s)
}

// RegisterNamedSnapshotter adds s under the given name. Registering two
// snapshotters under the same name serializes their Snapshot/restore pairs
// against each other via the shared lock-manager key, which is the point:
// a host keeping one logical piece of ambient state behind several
// Snapshotter values (e.g. one per subsystem) can name them alike to
// guarantee they never capture concurrently.
func RegisterNamedSnapshotter(name string, s Snapshotter) {
	snapshottersMu.Lock()
	defer snapshottersMu.Unlock()
	snapshotters = append(snapshotters, namedSnapshotter{key: name, s: s})
}

// captureSnapshot snapshots every registered Snapshotter and returns a
// single function that restores all of them, in reverse registration order
// (innermost-registered first), mirroring how the teacher's AutoCancel
// unwinds its collected cancel functions. Each snapshotter's key is held
// locked for the span between Snapshot and its matching restore.
func captureSnapshot() func() {
	snapshottersMu.RLock()
	current := snapshotters
	snapshottersMu.RUnlock()

	if len(current) == 0 {
		return func() {}
	}

	type held struct {
		lock    *unison.ManagedLock
		restore func()
	}
	holds := make([]held, len(current))
	for i, ns := range current {
		lock := snapshotLocks.Access(ns.key)
		lock.Lock()
		holds[i] = held{lock: lock, restore: ns.s.Snapshot()}
	}

	return func() {
		for i := len(holds) - 1; i >= 0; i-- {
			holds[i].restore()
			holds[i].lock.Unlock()
		}
	}
}
