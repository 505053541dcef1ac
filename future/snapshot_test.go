package future_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/try"
)

type recordingSnapshotter struct {
	mu        sync.Mutex
	snapshots int
	restores  int
}

func (r *recordingSnapshotter) Snapshot() func() {
	r.mu.Lock()
	r.snapshots++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.restores++
		r.mu.Unlock()
	}
}

func TestRegisterSnapshotterWrapsRespondDispatch(t *testing.T) {
	rec := &recordingSnapshotter{}
	future.RegisterSnapshotter(rec)

	p := future.Empty[int]()
	done := make(chan struct{})
	p.Future().Respond(func(try.Try[int]) { close(done) })
	require.NoError(t, p.SetValue(1))
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.GreaterOrEqual(t, rec.snapshots, 1)
	require.Equal(t, rec.snapshots, rec.restores)
}

// overlappingSnapshotter fails if two Snapshot calls under the same name are
// ever in flight at once, proving the lock-manager key actually serializes
// them rather than merely bookkeeping a count.
type overlappingSnapshotter struct {
	inFlight int32
	raced    int32
}

func (o *overlappingSnapshotter) Snapshot() func() {
	if atomic.AddInt32(&o.inFlight, 1) > 1 {
		atomic.StoreInt32(&o.raced, 1)
	}
	return func() {
		atomic.AddInt32(&o.inFlight, -1)
	}
}

func TestNamedSnapshottersSharingAKeySerializeCapture(t *testing.T) {
	o := &overlappingSnapshotter{}
	future.RegisterNamedSnapshotter("shared-key", o)

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p := future.Empty[int]()
		done := make(chan struct{})
		p.Future().Respond(func(try.Try[int]) { close(done) })
		go func() {
			defer wg.Done()
			require.NoError(t, p.SetValue(1))
			<-done
		}()
	}
	wg.Wait()

	require.Zero(t, o.raced, "snapshots sharing a name must never run concurrently")
}
