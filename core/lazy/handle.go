package lazy

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/lazyload/core/feature"
)

// State is the tri-state of a handle.
type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for v := Pending; v <= Rejected; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown handle state %q", string(b))
}

type attempt struct {
	done     chan struct{}
	state    State
	val      feature.Module
	err      error
	cause    error
	fellBack bool
}

// Handle is the caller-facing reference to one feature's eventual module. A
// handle keeps its identity across retries; only its current attempt changes.
type Handle struct {
	name        string
	reg         Registry
	fallback    feature.Module
	hasFallback bool
	opts        options

	mu       sync.Mutex
	cur      *attempt
	attempts int
}

func newHandle(reg Registry, d feature.Descriptor, opts options) *Handle {
	return &Handle{
		name:        d.Name,
		reg:         reg,
		fallback:    d.Fallback,
		hasFallback: d.HasFallback,
		opts:        opts,
	}
}

func (h *Handle) start() error {
	f, err := h.reg.Request(h.name)
	if err != nil {
		return err
	}
	a := &attempt{done: make(chan struct{})}
	h.mu.Lock()
	h.cur = a
	h.attempts++
	h.mu.Unlock()

	if f.Settled() {
		h.settle(a, f)
		return nil
	}
	end := h.opts.begin()
	go func() {
		defer end()
		<-f.Done()
		h.settle(a, f)
	}()
	return nil
}

func (h *Handle) settle(a *attempt, f *feature.Future) {
	val, err := f.Result()
	h.mu.Lock()
	switch {
	case err == nil:
		a.state, a.val = Resolved, val
	case h.hasFallback:
		a.state, a.val, a.cause, a.fellBack = Resolved, h.fallback, err, true
	default:
		a.state, a.err = Rejected, err
	}
	close(a.done)
	h.mu.Unlock()

	if a.fellBack {
		h.opts.log.Warnw("feature failed, using fallback", map[string]any{"feature": h.name, "error": err})
	}
}

func (h *Handle) current() *attempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

// Name returns the feature name.
func (h *Handle) Name() string { return h.name }

// State returns the state of the current attempt.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur.state
}

// Done is closed when the current attempt settles.
func (h *Handle) Done() <-chan struct{} { return h.current().done }

// Value returns the module once resolved. A fallback counts as resolved.
func (h *Handle) Value() (feature.Module, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cur.state != Resolved {
		return nil, false
	}
	return h.cur.val, true
}

// Err returns the load error of a rejected handle.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur.err
}

// FellBack reports whether the handle resolved to its fallback, and the load
// error that caused it.
func (h *Handle) FellBack() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur.fellBack, h.cur.cause
}

// Attempts returns how many loads this handle has started.
func (h *Handle) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Wait blocks until the handle settles. If a retry replaces the attempt while
// waiting, Wait follows the new one. A nil ctx never expires.
func (h *Handle) Wait(ctx context.Context) (feature.Module, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		a := h.current()
		select {
		case <-a.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		h.mu.Lock()
		same := h.cur == a
		h.mu.Unlock()
		if same {
			return a.val, a.err
		}
	}
}

// Retry resets the feature in the registry and requests it again. It is a
// no-op while the handle is pending or after a genuine success.
func (h *Handle) Retry() error {
	h.mu.Lock()
	retryable := h.cur.state == Rejected || h.cur.fellBack
	h.mu.Unlock()
	if !retryable {
		return nil
	}
	if err := h.reg.Reset(h.name); err != nil {
		return err
	}
	return h.start()
}
