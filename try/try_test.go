package try

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnThrow(t *testing.T) {
	r := Return(42)
	assert.True(t, r.IsReturn())
	assert.False(t, r.IsThrow())

	v, err := r.Get()
	assert.Equal(t, 42, v)
	assert.NoError(t, err)

	e := errors.New("boom")
	th := Throw[int](e)
	assert.True(t, th.IsThrow())
	assert.Same(t, e, th.Err)
}

func TestThrowNilPanics(t *testing.T) {
	assert.Panics(t, func() { Throw[int](nil) })
}

func TestApplyCapturesError(t *testing.T) {
	boom := errors.New("boom")
	got := Apply(func() (int, error) { return 0, boom })
	assert.True(t, got.IsThrow())
	assert.Equal(t, boom, got.Err)
}

func TestApplyCapturesPanic(t *testing.T) {
	got := Apply(func() (int, error) { panic("kaboom") })
	assert.True(t, got.IsThrow())
	assert.Contains(t, got.Err.Error(), "kaboom")
}

func TestMap(t *testing.T) {
	got := Map(Return(2), func(v int) (int, error) { return v * 2, nil })
	assert.Equal(t, Return(4), got)

	e := errors.New("x")
	got = Map(Throw[int](e), func(v int) (int, error) { return v * 2, nil })
	assert.True(t, got.IsThrow())
	assert.Equal(t, e, got.Err)
}

func TestFlatMap(t *testing.T) {
	got := FlatMap(Return(2), func(v int) Try[string] { return Return("ok") })
	assert.Equal(t, Return("ok"), got)

	e := errors.New("x")
	got = FlatMap(Throw[int](e), func(v int) Try[string] { return Return("ok") })
	assert.Equal(t, e, got.Err)
}

func TestFlatMapCapturesPanic(t *testing.T) {
	got := FlatMap(Return(2), func(v int) Try[string] { panic("nope") })
	assert.True(t, got.IsThrow())
	assert.Contains(t, got.Err.Error(), "nope")
}

func TestFilter(t *testing.T) {
	e := errors.New("rejected")
	got := Filter(Return(2), func(v int) bool { return v > 0 }, e)
	assert.Equal(t, Return(2), got)

	got = Filter(Return(-1), func(v int) bool { return v > 0 }, e)
	assert.Equal(t, e, got.Err)
}

func TestRescue(t *testing.T) {
	e := errors.New("boom")
	got := Rescue(Throw[int](e), func(err error) (int, bool) { return 7, true })
	assert.Equal(t, Return(7), got)

	got = Rescue(Throw[int](e), func(err error) (int, bool) { return 0, false })
	assert.Equal(t, e, got.Err)

	got = Rescue(Return(3), func(err error) (int, bool) { return 99, true })
	assert.Equal(t, Return(3), got)
}
