package feature

import (
	"context"
	"fmt"
	"strings"
)

// Module is the resolved value of a feature loader.
type Module = any

// Loader fetches and activates a feature module.
type Loader func(ctx context.Context) (Module, error)

// Descriptor identifies one loadable unit. It is copied on registration and
// never mutated afterwards.
type Descriptor struct {
	Name      string
	Load      Loader
	DependsOn []string
	// Fallback is used by lazy handles when the load fails and HasFallback
	// is set. The registry itself ignores it.
	Fallback    Module
	HasFallback bool
}

// WithFallback returns a copy of d carrying the fallback value v.
func (d Descriptor) WithFallback(v Module) Descriptor {
	d.Fallback = v
	d.HasFallback = true
	return d
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if d.Load == nil {
		return fmt.Errorf("%w: feature %q has no loader", ErrInvalidDescriptor, d.Name)
	}
	for _, dep := range d.DependsOn {
		if dep == d.Name {
			return fmt.Errorf("%w: feature %q depends on itself", ErrInvalidDescriptor, d.Name)
		}
	}
	return nil
}

func (d Descriptor) clone() Descriptor {
	if d.DependsOn != nil {
		deps := make([]string, len(d.DependsOn))
		copy(deps, d.DependsOn)
		d.DependsOn = deps
	}
	return d
}
