package lazy

import (
	"context"
	"errors"

	"github.com/kilianp07/lazyload/core/feature"
)

// ErrNoFactory is returned by Use when the context carries no factory.
var ErrNoFactory = errors.New("lazy: no factory in context")

type factoryKey struct{}

// WithFactory returns a copy of ctx carrying f.
func WithFactory(ctx context.Context, f *Factory) context.Context {
	return context.WithValue(ctx, factoryKey{}, f)
}

// FactoryFrom returns the factory carried by ctx.
func FactoryFrom(ctx context.Context) (*Factory, bool) {
	f, ok := ctx.Value(factoryKey{}).(*Factory)
	return f, ok && f != nil
}

// Use returns the cached handle for d from the factory in ctx.
func Use(ctx context.Context, d feature.Descriptor) (*Handle, error) {
	f, ok := FactoryFrom(ctx)
	if !ok {
		return nil, ErrNoFactory
	}
	return f.Get(d)
}
