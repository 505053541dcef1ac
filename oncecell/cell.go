// Package oncecell implements the single-assignment cell that backs every
// Promise: a cell is either empty or full, transitions empty->full exactly
// once, and maintains an ordered queue of waiters that each run exactly once
// against the stored value.
//
// Cell additionally supports Chained, which returns a derived cell whose
// fill is forwarded from the original. Chained cells and Merge share one
// union-find-style implementation: a cell is a tree node that either holds
// state locally (the root) or points at its parent. find() walks to the
// root and compresses the path on every call, which is what keeps an
// iteratively built flatMap chain at O(1) amortised cost per link instead of
// O(N) — see the future package's FlatMap for the caller side of this.
package oncecell

import (
	"context"

	"go.uber.org/atomic"

	"github.com/durgeshm/asyncore/unison"
)

// Waiter is the handle returned by Get, used to remove a still-pending
// waiter with Unget. A nil Waiter means the callback already ran
// synchronously because the cell was full at registration time.
type Waiter[T any] struct {
	fn func(T)
}

// Cell is a single-assignment cell of type T.
type Cell[T any] struct {
	parent atomic.Pointer[Cell[T]] // nil iff this node is currently a root

	// full is the fast-path flag for "is the root already set": Set stores
	// it after value is written and under mu, so a Load observing true is a
	// guarantee value is visible too, letting Poll/IsDefined skip the lock
	// entirely. mu still guards every write to full/value/waiters, and the
	// slow paths (Set, Get, Unget) re-check full under the lock regardless.
	full atomic.Bool

	mu      unison.Mutex // guards the fields below; meaningful only on the root
	value   T
	waiters []*Waiter[T]
}

// mergeMu serializes all Merge calls across every Cell instantiation. Merge
// is the only operation that links two roots together, so a single package
// level lock is enough to make every other root mutation (Set, Get, Unget,
// which each only ever touch one root's own mutex) free of cross-cell lock
// ordering concerns. Merges are rare relative to Set/Get, so the shared lock
// is not a contention hazard in practice.
var mergeMu = unison.MakeMutex()

// New returns a new empty cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{mu: unison.MakeMutex()}
}

// Filled returns a new cell that is already full with v.
func Filled[T any](v T) *Cell[T] {
	c := &Cell[T]{mu: unison.MakeMutex(), value: v}
	c.full.Store(true)
	return c
}

// find returns the current root of c, compressing the path traversed so that
// subsequent lookups through c (or any node visited along the way) are O(1).
func (c *Cell[T]) find() *Cell[T] {
	root := c
	for {
		p := root.parent.Load()
		if p == nil {
			break
		}
		root = p
	}

	for n := c; n != root; {
		p := n.parent.Load()
		if p == nil {
			break
		}
		n.parent.Store(root)
		n = p
	}
	return root
}

// lockRoot resolves c to its current root and returns it locked. A
// concurrent Merge can reparent the node find() just returned in the window
// between find() returning and the lock being acquired (Merge holds both
// sides' locks while it calls loser.parent.Store(survivor)); lockRoot
// detects that by re-checking parent.Load() once the lock is held, and
// retries via find() until it locks a node that is still actually a root.
func (c *Cell[T]) lockRoot() *Cell[T] {
	for {
		root := c.find()
		root.mu.Lock()
		if root.parent.Load() == nil {
			return root
		}
		root.mu.Unlock()
	}
}

// Set transitions the cell to full(v) if it is still empty, draining every
// registered waiter in registration order. It returns false without
// overwriting anything if the cell was already full.
func (c *Cell[T]) Set(v T) bool {
	root := c.lockRoot()
	if root.full.Load() {
		root.mu.Unlock()
		return false
	}
	root.value = v
	root.full.Store(true)
	waiters := root.waiters
	root.waiters = nil
	root.mu.Unlock()

	// Waiters run outside the lock: a waiter that re-enters the cell (e.g.
	// to register another waiter, or to call Unget on itself) must not
	// deadlock against the lock that drained it.
	for _, w := range waiters {
		w.fn(v)
	}
	return true
}

// Get invokes k with the stored value if the cell is already full, or
// enqueues k to run later and returns a Waiter that can be passed to Unget.
// Get returns nil when k ran synchronously.
func (c *Cell[T]) Get(k func(T)) *Waiter[T] {
	root := c.lockRoot()
	if root.full.Load() {
		v := root.value
		root.mu.Unlock()
		k(v)
		return nil
	}

	w := &Waiter[T]{fn: k}
	root.waiters = append(root.waiters, w)
	root.mu.Unlock()
	return w
}

// Unget removes a still-pending waiter previously returned by Get. It is a
// no-op if the cell has already been filled (the waiter either already ran
// or is about to, and there is nothing left to remove) or if w is nil.
func (c *Cell[T]) Unget(w *Waiter[T]) {
	if w == nil {
		return
	}

	root := c.lockRoot()
	defer root.mu.Unlock()

	if root.full.Load() {
		return
	}
	for i, cand := range root.waiters {
		if cand == w {
			root.waiters = append(root.waiters[:i], root.waiters[i+1:]...)
			return
		}
	}
}

// Poll performs a non-blocking read. It never blocks on mu: once full is
// observed true, value is guaranteed already visible (Set always writes
// value before storing full), so the read is safe without taking the lock.
func (c *Cell[T]) Poll() (T, bool) {
	root := c.find()
	if root.full.Load() {
		return root.value, true
	}
	var zero T
	return zero, false
}

// IsDefined reports whether the cell is full.
func (c *Cell[T]) IsDefined() bool {
	_, ok := c.Poll()
	return ok
}

// Wait blocks until the cell is full or ctx is done, whichever happens
// first. This is the context-based rendition of spec's wait(timeout);
// pair with context.WithTimeout for a deadline.
func (c *Cell[T]) Wait(ctx context.Context) (T, error) {
	if v, ok := c.Poll(); ok {
		return v, nil
	}

	ch := make(chan T, 1)
	w := c.Get(func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	if w == nil {
		v, _ := c.Poll()
		return v, nil
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		c.Unget(w)
		// The fill may have raced the cancellation exactly as it landed;
		// prefer the value if it is already sitting in the channel.
		select {
		case v := <-ch:
			return v, nil
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Chained returns a new cell whose fill is forwarded from c: the returned
// cell shares storage with c's current root, so setting either is observed
// through both, exactly like a Merge. Building a chain of Chained() calls
// therefore never grows waiter lists linearly with chain depth — every call
// re-resolves to (and compresses onto) the one ultimate root.
func (c *Cell[T]) Chained() *Cell[T] {
	root := c.find()
	child := &Cell[T]{mu: unison.MakeMutex()}
	child.parent.Store(root)
	return child
}

// Merge unifies c and other so that both henceforth observe the same fill
// and the same waiter set. If either side is already full, the other
// observes that value (monotonicity is preserved: a full cell is never
// overwritten). The root kept as the surviving node is whichever is already
// full, or — if neither is full — whichever already has more waiters, since
// that is the side closer to being observed by more callers.
func (c *Cell[T]) Merge(other *Cell[T]) {
	mergeMu.Lock()
	defer mergeMu.Unlock()

	a := c.find()
	b := other.find()
	if a == b {
		return
	}

	a.mu.Lock()
	b.mu.Lock()

	aFull, bFull := a.full.Load(), b.full.Load()
	survivor, loser, survivorFull, loserFull := a, b, aFull, bFull
	if bFull || (!aFull && len(b.waiters) > len(a.waiters)) {
		survivor, loser, survivorFull, loserFull = b, a, bFull, aFull
	}

	var drain []*Waiter[T]
	if loserFull && !survivorFull {
		survivor.value = loser.value
		survivor.full.Store(true)
		drain = append(drain, survivor.waiters...)
		survivor.waiters = nil
	} else if survivorFull && !loserFull {
		drain = append(drain, loser.waiters...)
	} else {
		survivor.waiters = append(survivor.waiters, loser.waiters...)
	}
	loser.waiters = nil
	loser.parent.Store(survivor)

	value := survivor.value
	a.mu.Unlock()
	b.mu.Unlock()

	for _, w := range drain {
		w.fn(value)
	}
}
