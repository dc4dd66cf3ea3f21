package lazy

import (
	"sort"
	"sync"

	"github.com/kilianp07/lazyload/core/feature"
)

// Registry is the part of the feature registry handles load through.
type Registry interface {
	Register(d feature.Descriptor) error
	Has(name string) bool
	Descriptor(name string) (feature.Descriptor, error)
	Request(name string) (*feature.Future, error)
	Reset(name string) error
}

// Factory memoizes one Handle per feature name.
type Factory struct {
	reg  Registry
	opts options

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewFactory returns a factory loading through reg.
func NewFactory(reg Registry, opts ...Option) *Factory {
	return &Factory{
		reg:     reg,
		opts:    buildOptions(opts),
		handles: make(map[string]*Handle),
	}
}

// Get returns the handle for d.Name, creating it and starting its load on the
// first call. The descriptor is registered if the name is new; an already
// registered descriptor wins over d, except that d may supply a fallback.
func (f *Factory) Get(d feature.Descriptor) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.handles[d.Name]; ok {
		return h, nil
	}
	if !f.reg.Has(d.Name) {
		if err := f.reg.Register(d); err != nil {
			return nil, err
		}
	}
	return f.createLocked(d)
}

// Lookup returns the handle for an already registered feature.
func (f *Factory) Lookup(name string) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.handles[name]; ok {
		return h, nil
	}
	d, err := f.reg.Descriptor(name)
	if err != nil {
		return nil, err
	}
	return f.createLocked(d)
}

// Names returns the features that have a handle, sorted.
func (f *Factory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.handles))
	for n := range f.handles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *Factory) createLocked(d feature.Descriptor) (*Handle, error) {
	if !d.HasFallback {
		if reg, err := f.reg.Descriptor(d.Name); err == nil && reg.HasFallback {
			d = d.WithFallback(reg.Fallback)
		}
	}
	h := newHandle(f.reg, d, f.opts)
	if err := h.start(); err != nil {
		return nil, err
	}
	f.handles[d.Name] = h
	f.opts.log.Debugw("lazy handle created", map[string]any{"feature": d.Name})
	return h, nil
}
