package feature

import "context"

// Future is the eventual result of one loader invocation. It settles exactly
// once and is shared by every caller that requested the feature while it was
// loading.
type Future struct {
	done chan struct{}
	val  Module
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future already settled with v.
func Resolved(v Module) *Future {
	f := newFuture()
	f.settle(v, nil)
	return f
}

func (f *Future) settle(v Module, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Done is closed once the load has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the load finished, successfully or not.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value, or ErrPending.
func (f *Future) Result() (Module, error) {
	if !f.Settled() {
		return nil, ErrPending
	}
	return f.val, f.err
}

// Wait blocks until the load settles or ctx is done. Giving up on ctx does
// not cancel the load.
func (f *Future) Wait(ctx context.Context) (Module, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
