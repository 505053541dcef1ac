package future

import (
	"context"

	"github.com/durgeshm/asyncore/ctxtool"
	"github.com/durgeshm/asyncore/try"
)

// FromContext returns a Future[struct{}] that fails with ctx.Err() once ctx
// is done, using ctxtool.WithFunc as the bridge from context cancellation
// into a Future completion. It never completes successfully; a context is
// only ever done because it was cancelled or timed out.
func FromContext(ctx context.Context) Future[struct{}] {
	p := Empty[struct{}]()
	ctxtool.WithFunc(ctx, func() {
		p.UpdateIfEmpty(try.Throw[struct{}](ctx.Err()))
	})
	return p.Future()
}

// WithContext merges ctx's cancellation into f's own: the returned context
// is done as soon as ctx is done or f is cancelled or fails (see AsContext;
// a successful completion of f does not end it). f.AsContext() never carries
// any values, so value lookups always fall through to ctx. Built from
// ctxtool.MergeContexts, so a Future's cancellation signal can be combined
// with an ambient context without writing a bespoke merge type.
func (f Future[A]) WithContext(ctx context.Context) context.Context {
	return ctxtool.MergeContexts(ctx, f.AsContext())
}

// GetSignal blocks until f completes or stop is closed, whichever happens
// first, built from ctxtool.WithChannel over a background context — useful
// for code structured around a plain stop channel rather than a
// context.Context.
func (f Future[A]) GetSignal(stop <-chan struct{}) (try.Try[A], error) {
	return f.GetContext(ctxtool.WithChannel(context.Background(), stop))
}
