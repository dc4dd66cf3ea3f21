// Package lazy gives rendering code stable references to lazily loaded
// features.
//
// A Factory hands out one Handle per feature name for the lifetime of the
// process, so every render site asking for "charts" shares the same handle
// and the same underlying fetch. A Boundary wraps a handle and renders a
// loading, content or error view, with a user-triggered Retry after failure.
//
// The factory is injected through a context.Context rather than held in a
// package-level variable:
//
//	ctx = lazy.WithFactory(ctx, lazy.NewFactory(reg))
//	h, err := lazy.Use(ctx, chartsDescriptor)
//	b := lazy.NewBoundary(h, lazy.Views[string]{Loading: "loading charts"})
//	out := b.Render()
package lazy
