package lazy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/feature"
)

// MaxErrorMessage bounds ErrorInfo.Message, in runes.
const MaxErrorMessage = 160

var (
	// ErrNotErrored is returned by Boundary.Retry outside the Errored state.
	ErrNotErrored = errors.New("lazy: boundary is not in error state")
	// ErrContentPanic wraps a panic raised by a content view.
	ErrContentPanic = errors.New("lazy: content view panicked")
	// ErrContentType is reported when no Content view is set and the module
	// is not a V.
	ErrContentType = errors.New("lazy: module has unexpected type")
)

// BoundaryState is the displayed state of one boundary.
type BoundaryState int

const (
	BoundaryLoading BoundaryState = iota
	BoundaryResolved
	BoundaryErrored
)

func (s BoundaryState) String() string {
	switch s {
	case BoundaryLoading:
		return "loading"
	case BoundaryResolved:
		return "resolved"
	case BoundaryErrored:
		return "errored"
	}
	return "unknown"
}

// ErrorInfo is handed to the error view.
type ErrorInfo struct {
	Feature string
	Err     error
	// Message is Err's text cut to MaxErrorMessage runes.
	Message string
}

// Views renders the three boundary states. Content must not call back into
// the boundary. A nil Content asserts the module to V. A nil Error uses a
// short text view when V is string and the zero V otherwise.
type Views[V any] struct {
	Loading V
	Content func(feature.Module) V
	Error   func(ErrorInfo) V
}

// Boundary renders loading, content or error views for one handle. Resolved
// is terminal; Errored returns to Loading only through Retry.
type Boundary[V any] struct {
	h     *Handle
	views Views[V]
	opts  options

	mu       sync.Mutex
	state    BoundaryState
	content  V
	info     ErrorInfo
	retrying bool
	retries  int
}

// NewBoundary wraps h.
func NewBoundary[V any](h *Handle, views Views[V], opts ...Option) *Boundary[V] {
	if views.Error == nil {
		views.Error = defaultErrorView[V]
	}
	return &Boundary[V]{h: h, views: views, opts: buildOptions(opts)}
}

func defaultErrorView[V any](info ErrorInfo) V {
	var zero V
	if _, ok := any(zero).(string); ok {
		return any(fmt.Sprintf("%s failed to load: %s", info.Feature, info.Message)).(V)
	}
	return zero
}

// State observes the handle and returns the boundary state.
func (b *Boundary[V]) State() BoundaryState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observeLocked()
	return b.state
}

// Error returns the failure shown by an errored boundary.
func (b *Boundary[V]) Error() (ErrorInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observeLocked()
	return b.info, b.state == BoundaryErrored
}

// Retries returns how many times Retry succeeded in leaving Errored.
func (b *Boundary[V]) Retries() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retries
}

// Render returns the view for the current state without blocking.
func (b *Boundary[V]) Render() V {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observeLocked()
	switch b.state {
	case BoundaryResolved:
		return b.content
	case BoundaryErrored:
		return b.views.Error(b.info)
	}
	return b.views.Loading
}

// Await waits for the handle to settle and renders. When ctx ends first the
// loading view is returned with ctx's error.
func (b *Boundary[V]) Await(ctx context.Context) (V, error) {
	if _, err := b.h.Wait(ctx); err != nil && ctx.Err() != nil {
		return b.Render(), ctx.Err()
	}
	return b.Render(), nil
}

// Retry resets the feature and loads it again. Only valid while Errored.
func (b *Boundary[V]) Retry() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BoundaryErrored {
		return ErrNotErrored
	}
	if err := b.h.Retry(); err != nil {
		return err
	}
	b.state = BoundaryLoading
	b.info = ErrorInfo{}
	b.retrying = true
	b.retries++
	b.opts.log.Infow("retrying feature", map[string]any{"feature": b.h.Name(), "retry": b.retries})
	events.Emit(b.opts.obs, events.Event{Kind: events.RetryRequested, Feature: b.h.Name()})
	return nil
}

func (b *Boundary[V]) observeLocked() {
	if b.state != BoundaryLoading {
		return
	}
	switch b.h.State() {
	case Rejected:
		b.failLocked(b.h.Err())
	case Resolved:
		v, _ := b.h.Value()
		out, err := b.renderContent(v)
		if err != nil {
			b.failLocked(err)
			return
		}
		b.content = out
		b.state = BoundaryResolved
		if b.retrying {
			b.retrying = false
			b.opts.log.Infow("feature retry succeeded", map[string]any{"feature": b.h.Name(), "retry": b.retries})
			events.Emit(b.opts.obs, events.Event{Kind: events.RetrySucceeded, Feature: b.h.Name()})
		}
	}
}

func (b *Boundary[V]) failLocked(err error) {
	b.state = BoundaryErrored
	b.retrying = false
	b.info = ErrorInfo{Feature: b.h.Name(), Err: err, Message: boundMessage(err)}
	b.opts.log.Errorw("feature boundary errored", map[string]any{"feature": b.h.Name(), "error": err})
}

func (b *Boundary[V]) renderContent(m feature.Module) (out V, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrContentPanic, p)
		}
	}()
	if b.views.Content == nil {
		v, ok := m.(V)
		if !ok {
			return out, fmt.Errorf("%w: %T", ErrContentType, m)
		}
		return v, nil
	}
	return b.views.Content(m), nil
}

func boundMessage(err error) string {
	if err == nil {
		return ""
	}
	r := []rune(err.Error())
	if len(r) <= MaxErrorMessage {
		return string(r)
	}
	return string(r[:MaxErrorMessage-1]) + "…"
}
