package future_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/durgeshm/asyncore/future"
	"github.com/durgeshm/asyncore/timer/timertest"
	"github.com/durgeshm/asyncore/try"
	"github.com/durgeshm/asyncore/unison"
)

func TestMapTransformsSuccess(t *testing.T) {
	f := future.Map(future.Value(2), func(n int) (int, error) { return n * 10, nil })
	res, _ := f.Poll()
	require.Equal(t, 20, res.Value)
}

func TestMapPassesThrowThrough(t *testing.T) {
	errBoom := errors.New("boom")
	f := future.Map(future.Exception[int](errBoom), func(n int) (int, error) { return n, nil })
	res, _ := f.Poll()
	require.Equal(t, errBoom, res.Err)
}

func TestFlatMapSequencesAndCancelsCurrentParent(t *testing.T) {
	a := future.Empty[int]()
	var innerCancelled bool
	b := future.Empty[int]()
	b.Future().OnCancellation(func() { innerCancelled = true })

	chained := future.FlatMap(a.Future(), func(int) future.Future[int] {
		return b.Future()
	})

	// Before a resolves, cancelling chained must cancel a, not b.
	var aCancelled bool
	a.Future().OnCancellation(func() { aCancelled = true })
	chained.Cancel()
	require.True(t, aCancelled)
	require.False(t, innerCancelled)
}

func TestFlatMapCancelsInnerOnceAdvanced(t *testing.T) {
	a := future.Value(1)
	b := future.Empty[int]()
	var innerCancelled bool
	b.Future().OnCancellation(func() { innerCancelled = true })

	chained := future.FlatMap(a, func(int) future.Future[int] { return b.Future() })

	// a is already resolved, so chained's cancellation now targets b.
	chained.Cancel()
	require.True(t, innerCancelled)
}

func TestFlatMapPropagatesThrowWithoutCallingFn(t *testing.T) {
	errBoom := errors.New("boom")
	var called bool
	f := future.FlatMap(future.Exception[int](errBoom), func(int) future.Future[int] {
		called = true
		return future.Value(0)
	})
	res, _ := f.Poll()
	require.Equal(t, errBoom, res.Err)
	require.False(t, called)
}

func TestFlatMapCapturesPanicFromFn(t *testing.T) {
	f := future.FlatMap(future.Value(1), func(int) future.Future[int] {
		panic("boom")
	})
	res, _ := f.Poll()
	require.Error(t, res.Err)
}

// TestChainedFlatMapDoesNotLeak is the Go-idiomatic rendition of "build
// loop(i) = Future.value(i).flatMap(x => loop(x+1)) for many iterations and
// check memory stays bounded": since oncecell.Cell.Merge/Chained flatten an
// iteratively built chain to O(1) depth, waiter and goroutine counts must
// stay flat regardless of chain length, which goleak can check directly.
func TestChainedFlatMapDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 20000
	result := future.Value(0)
	for i := 0; i < n; i++ {
		result = future.FlatMap(result, func(x int) future.Future[int] {
			return future.Value(x + 1)
		})
	}

	res, err := result.Get(10 * time.Second)
	require.NoError(t, err)
	require.Equal(t, n, res.Value)
}

func TestRescueHandlesRecognizedThrow(t *testing.T) {
	errBoom := errors.New("boom")
	f := future.Rescue(future.Exception[int](errBoom), func(err error) (future.Future[int], bool) {
		if errors.Is(err, errBoom) {
			return future.Value(99), true
		}
		return future.Future[int]{}, false
	})
	res, _ := f.Poll()
	require.Equal(t, 99, res.Value)
}

func TestRescueDeclinesUnrecognizedThrow(t *testing.T) {
	errBoom := errors.New("boom")
	f := future.Rescue(future.Exception[int](errBoom), func(error) (future.Future[int], bool) {
		return future.Future[int]{}, false
	})
	res, _ := f.Poll()
	require.Equal(t, errBoom, res.Err)
}

func TestRescuePassesReturnThrough(t *testing.T) {
	var called bool
	f := future.Rescue(future.Value(5), func(error) (future.Future[int], bool) {
		called = true
		return future.Future[int]{}, false
	})
	res, _ := f.Poll()
	require.Equal(t, 5, res.Value)
	require.False(t, called)
}

func TestRecoverIsTotal(t *testing.T) {
	f := future.Recover(future.Exception[int](errors.New("boom")), func(error) int { return 1 })
	res, _ := f.Poll()
	require.Equal(t, 1, res.Value)
}

func TestFilterRejectsValue(t *testing.T) {
	errReject := errors.New("rejected")
	f := future.Filter(future.Value(4), func(n int) bool { return n > 10 }, errReject)
	res, _ := f.Poll()
	require.Equal(t, errReject, res.Err)
}

func TestFilterAcceptsValue(t *testing.T) {
	f := future.Filter(future.Value(40), func(n int) bool { return n > 10 }, errors.New("rejected"))
	res, _ := f.Poll()
	require.Equal(t, 40, res.Value)
}

func TestEnsureRunsOnSuccessAndFailure(t *testing.T) {
	var n int32
	future.Ensure(future.Value(1), func() { atomic.AddInt32(&n, 1) })
	future.Ensure(future.Exception[int](errors.New("boom")), func() { atomic.AddInt32(&n, 1) })
	require.EqualValues(t, 2, n)
}

func TestJoin2CompletesWithBothValues(t *testing.T) {
	f := future.Join2(future.Value("a"), future.Value(1))
	res, _ := f.Poll()
	require.Equal(t, future.Pair[string, int]{First: "a", Second: 1}, res.Value)
}

func TestJoin2FailsOnFirstThrow(t *testing.T) {
	errBoom := errors.New("boom")
	f := future.Join2(future.Exception[string](errBoom), future.Value(1))
	res, _ := f.Poll()
	require.Equal(t, errBoom, res.Err)
}

func TestJoin2CancelsBothInputs(t *testing.T) {
	a := future.Empty[int]()
	b := future.Empty[int]()
	var aCancelled, bCancelled bool
	a.Future().OnCancellation(func() { aCancelled = true })
	b.Future().OnCancellation(func() { bCancelled = true })

	future.Join2(a.Future(), b.Future()).Cancel()
	require.True(t, aCancelled)
	require.True(t, bCancelled)
}

func TestCollectPreservesOrder(t *testing.T) {
	fs := []future.Future[int]{future.Value(1), future.Value(2), future.Value(3)}
	f := future.Collect(fs)
	res, _ := f.Poll()
	require.Equal(t, []int{1, 2, 3}, res.Value)
}

func TestCollectEmptySliceCompletesImmediately(t *testing.T) {
	f := future.Collect([]future.Future[int]{})
	res, ok := f.Poll()
	require.True(t, ok)
	require.Empty(t, res.Value)
}

// TestCollectOverProducersFedByMultiErrGroup fans out n producer goroutines
// with unison.MultiErrGroup, each publishing its Future result into a
// Promise; Collect then joins all n promises. MultiErrGroup's own error
// collection is reserved for failures in the producer goroutines
// themselves (e.g. the publish step), distinct from the Try-level failures
// Collect already reports through its own result.
func TestCollectOverProducersFedByMultiErrGroup(t *testing.T) {
	const n = 16

	promises := make([]*future.Promise[int], n)
	futures := make([]future.Future[int], n)
	for i := range promises {
		promises[i] = future.Empty[int]()
		futures[i] = promises[i].Future()
	}

	var group unison.MultiErrGroup
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			return promises[i].SetValue(i)
		})
	}
	producerErrs := group.Wait()
	require.Empty(t, producerErrs)

	f := future.Collect(futures)
	res, ok := f.Poll()
	require.True(t, ok)
	require.Len(t, res.Value, n)
	for i, v := range res.Value {
		require.Equal(t, i, v)
	}
}

func TestCollectFailsOnFirstThrow(t *testing.T) {
	errBoom := errors.New("boom")
	fs := []future.Future[int]{future.Value(1), future.Exception[int](errBoom), future.Value(3)}
	f := future.Collect(fs)
	res, _ := f.Poll()
	require.Equal(t, errBoom, res.Err)
}

func TestWhenAllIsCollectToUnit(t *testing.T) {
	fs := []future.Future[int]{future.Value(1), future.Value(2)}
	f := future.WhenAll(fs)
	_, ok := f.Poll()
	require.True(t, ok)
}

func TestSelectReturnsWinnerAndRemainder(t *testing.T) {
	defer goleak.VerifyNone(t)

	winner := future.Empty[int]()
	slow1 := future.Empty[int]()
	slow2 := future.Empty[int]()

	f := future.Select([]future.Future[int]{slow1.Future(), winner.Future(), slow2.Future()})
	require.NoError(t, winner.SetValue(42))

	res, ok := f.Poll()
	require.True(t, ok)
	require.Equal(t, 42, res.Value.Winner.Value)
	require.Len(t, res.Value.Remaining, 2)

	slow1.SetValue(1)
	slow2.SetValue(2)
}

func TestSelectCancelsEveryInput(t *testing.T) {
	a := future.Empty[int]()
	b := future.Empty[int]()
	var aCancelled, bCancelled bool
	a.Future().OnCancellation(func() { aCancelled = true })
	b.Future().OnCancellation(func() { bCancelled = true })

	future.WhenAny([]future.Future[int]{a.Future(), b.Future()}).Cancel()
	require.True(t, aCancelled)
	require.True(t, bCancelled)
}

func TestWithinTimesOutBeforeCompletion(t *testing.T) {
	mt := timertest.NewMockTimer()
	p := future.Empty[int]()

	f := future.Within(p.Future(), mt, 10*time.Second)

	require.NoError(t, mt.Tick(time.Now().Add(11*time.Second)))

	res, ok := f.Poll()
	require.True(t, ok)
	require.True(t, res.IsThrow())
	require.ErrorIs(t, res.Err, future.ErrTimeout)
}

func TestWithinCancelsTimeoutTaskOnEarlyCompletion(t *testing.T) {
	mt := timertest.NewMockTimer()
	p := future.Empty[int]()

	f := future.Within(p.Future(), mt, 10*time.Second)
	require.NoError(t, p.SetValue(7))

	require.Equal(t, 0, mt.Pending(), "completing early must cancel the scheduled timeout")

	res, _ := f.Poll()
	require.Equal(t, 7, res.Value)
}

func TestWithinCancellingResultCancelsInput(t *testing.T) {
	mt := timertest.NewMockTimer()
	p := future.Empty[int]()
	var cancelled bool
	p.Future().OnCancellation(func() { cancelled = true })

	future.Within(p.Future(), mt, time.Second).Cancel()
	require.True(t, cancelled)
}

func TestTimesRunsSequentiallyInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	f := future.Times(5, func(i int) future.Future[struct{}] {
		return future.Apply(func() (struct{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return struct{}{}, nil
		})
	})

	_, ok := f.Poll()
	require.True(t, ok)
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestTimesStopsOnFirstError(t *testing.T) {
	var ran []int
	errBoom := errors.New("boom")

	f := future.Times(5, func(i int) future.Future[struct{}] {
		ran = append(ran, i)
		if i == 2 {
			return future.Exception[struct{}](errBoom)
		}
		return future.Unit()
	})

	res, ok := f.Poll()
	require.True(t, ok)
	require.Equal(t, errBoom, res.Err)
	require.Equal(t, []int{0, 1, 2}, ran)
}

func TestWhileDoReevaluatesPredAfterEachStep(t *testing.T) {
	n := 0
	f := future.WhileDo(
		func() bool { return n < 5 },
		func() future.Future[struct{}] {
			return future.Apply(func() (struct{}, error) {
				n++
				return struct{}{}, nil
			})
		},
	)

	_, ok := f.Poll()
	require.True(t, ok)
	require.Equal(t, 5, n)
}

func TestWhileDoNeverRunsWhenPredIsInitiallyFalse(t *testing.T) {
	var ran bool
	f := future.WhileDo(
		func() bool { return false },
		func() future.Future[struct{}] {
			ran = true
			return future.Unit()
		},
	)

	_, ok := f.Poll()
	require.True(t, ok)
	require.False(t, ran)
}

func TestTryFuturesCompleteSynchronouslyForPolling(t *testing.T) {
	// Sanity check that try.Try's own zero-value semantics line up with what
	// Poll exposes for an already-completed Future.
	f := future.Of(try.Return(3)).Future()
	res, ok := f.Poll()
	require.True(t, ok)
	require.True(t, res.IsReturn())
}
