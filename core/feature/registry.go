package feature

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/logger"
)

// Option configures a Registry.
type Option func(*Registry)

// WithObserver sets the event observer.
func WithObserver(o events.Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.obs = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = logger.OrNop(l) }
}

// WithLoadTimeout bounds every loader invocation. Zero, the default, means a
// hung loader keeps its feature in Loading forever.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

type entry struct {
	desc     Descriptor
	state    State
	flight   *Future
	err      error
	attempts int
	duration time.Duration
	loadedAt time.Time
}

// Status is a point-in-time view of one feature.
type Status struct {
	Name      string        `json:"name"`
	State     State         `json:"state"`
	DependsOn []string      `json:"depends_on,omitempty"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	LoadedAt  time.Time     `json:"loaded_at,omitempty"`
}

// Registry maps feature names to descriptors and owns their load state and
// module cache.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	obs     events.Observer
	log     logger.Logger
	timeout time.Duration
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		obs:     events.Nop{},
		log:     logger.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a descriptor. Dependencies may be registered later; call
// Validate once the table is complete.
func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFeature, d.Name)
	}
	r.entries[d.Name] = &entry{desc: d.clone()}
	return nil
}

// MustRegister is Register for startup tables; it panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}

// Descriptor returns the registered descriptor for name.
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, &UnknownFeatureError{Name: name}
	}
	return e.desc.clone(), nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every dependency is registered and acyclic.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.entries {
		if err := r.checkDepsLocked(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkDepsLocked(root string) error {
	const (
		visiting = 1
		done     = 2
	)
	marks := map[string]int{}
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		e, ok := r.entries[name]
		if !ok {
			return fmt.Errorf("feature %q depends on %w", path[len(path)-1], &UnknownFeatureError{Name: name})
		}
		switch marks[name] {
		case visiting:
			return fmt.Errorf("%w: %v", ErrDependencyCycle, append(path, name))
		case done:
			return nil
		}
		marks[name] = visiting
		next := append(append([]string(nil), path...), name)
		for _, dep := range e.desc.DependsOn {
			if err := visit(dep, next); err != nil {
				return err
			}
		}
		marks[name] = done
		return nil
	}
	return visit(root, nil)
}

// State returns the current state of name. Unknown names report Unregistered.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.state
	}
	return Unregistered
}

// IsLoaded reports whether name has a cached module.
func (r *Registry) IsLoaded(name string) bool {
	return r.State(name) == Loaded
}

// Value returns the cached module for a loaded feature.
func (r *Registry) Value(name string) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok || e.state != Loaded {
		return nil, false
	}
	v, _ := e.flight.Result()
	return v, true
}

// MarkQueued moves name from Unregistered to Queued. It reports false, without
// error, for any other state.
func (r *Registry) MarkQueued(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return false, &UnknownFeatureError{Name: name}
	}
	if e.state != Unregistered {
		return false, nil
	}
	e.state = Queued
	return true, nil
}

// Request returns the Future for name, starting the loader if the feature is
// not already loading or loaded. Unknown names fail synchronously.
func (r *Registry) Request(name string) (*Future, error) {
	f, _, err := r.request(name, false)
	return f, err
}

// RequestQueued is Request for a feature still waiting in a preload queue.
// It joins a load already in flight or settled as Loaded, starts one only
// from Queued, and reports false when the feature left the queue some other
// way (a failed direct request or a reset). Failed features are never
// reloaded by this call.
func (r *Registry) RequestQueued(name string) (*Future, bool, error) {
	return r.request(name, true)
}

func (r *Registry) request(name string, queuedOnly bool) (*Future, bool, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil, false, &UnknownFeatureError{Name: name}
	}
	if e.state == Loaded || e.state == Loading {
		f := e.flight
		r.mu.Unlock()
		return f, true, nil
	}
	if queuedOnly && e.state != Queued {
		r.mu.Unlock()
		return nil, false, nil
	}
	f := newFuture()
	e.state = Loading
	e.flight = f
	e.err = nil
	e.attempts++
	desc := e.desc
	r.mu.Unlock()

	attempt := uuid.NewString()
	events.Emit(r.obs, events.Event{Kind: events.LoadStarted, Feature: name, Attempt: attempt})
	go r.load(e, desc, f, attempt)
	return f, true, nil
}

// Unqueue moves a Queued feature back to Unregistered. Other states are left
// untouched.
func (r *Registry) Unqueue(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok && e.state == Queued {
		e.state = Unregistered
	}
}

// Reset forces a Failed or Loaded feature back to Unregistered so that the
// next Request invokes the loader again. Other states are left untouched.
func (r *Registry) Reset(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return &UnknownFeatureError{Name: name}
	}
	if e.state != Failed && e.state != Loaded {
		return nil
	}
	e.state = Unregistered
	e.flight = nil
	return nil
}

// Snapshot returns the status of every feature, sorted by name.
func (r *Registry) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.entries))
	for name, e := range r.entries {
		st := Status{
			Name:      name,
			State:     e.state,
			DependsOn: append([]string(nil), e.desc.DependsOn...),
			Attempts:  e.attempts,
			Duration:  e.duration,
			LoadedAt:  e.loadedAt,
		}
		if e.err != nil {
			st.LastError = e.err.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the status of a single feature.
func (r *Registry) Lookup(name string) (Status, error) {
	for _, st := range r.Snapshot() {
		if st.Name == name {
			return st, nil
		}
	}
	return Status{}, &UnknownFeatureError{Name: name}
}

func (r *Registry) load(e *entry, desc Descriptor, f *Future, attempt string) {
	start := time.Now()
	val, err := r.run(desc)
	elapsed := time.Since(start)
	if err != nil {
		err = &LoadError{Feature: desc.Name, Cause: err}
	}

	r.mu.Lock()
	e.duration = elapsed
	if err != nil {
		e.state = Failed
		e.err = err
	} else {
		e.state = Loaded
		e.loadedAt = time.Now()
	}
	f.settle(val, err)
	r.mu.Unlock()

	if err != nil {
		r.log.Errorw("feature load failed", map[string]any{
			"feature": desc.Name,
			"attempt": attempt,
			"error":   err,
		})
		events.Emit(r.obs, events.Event{Kind: events.LoadFailed, Feature: desc.Name, Attempt: attempt, Err: err, Duration: elapsed})
		return
	}
	events.Emit(r.obs, events.Event{Kind: events.Loaded, Feature: desc.Name, Attempt: attempt, Duration: elapsed})
}

func (r *Registry) run(desc Descriptor) (Module, error) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if len(desc.DependsOn) > 0 {
		if err := r.loadDependencies(ctx, desc); err != nil {
			return nil, err
		}
	}
	if r.timeout <= 0 {
		return invoke(ctx, desc.Load)
	}

	type result struct {
		val Module
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := invoke(ctx, desc.Load)
		ch <- result{v, err}
	}()
	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) loadDependencies(ctx context.Context, desc Descriptor) error {
	r.mu.Lock()
	err := r.checkDepsLocked(desc.Name)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	for _, dep := range desc.DependsOn {
		f, err := r.Request(dep)
		if err != nil {
			return err
		}
		if _, err := f.Wait(ctx); err != nil {
			return fmt.Errorf("dependency %q: %w", dep, err)
		}
	}
	return nil
}

func invoke(ctx context.Context, load Loader) (val Module, err error) {
	defer func() {
		if p := recover(); p != nil {
			val = nil
			err = fmt.Errorf("%w: %v", ErrLoaderPanic, p)
		}
	}()
	return load(ctx)
}
