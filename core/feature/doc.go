// Package feature is the single source of truth for optional feature modules:
// which features exist, whether each is loading, loaded or failed, and the
// resolved module or error.
//
// A Registry guarantees at most one outstanding loader invocation per feature
// name. Concurrent Request calls for a feature that is already loading share
// the same Future; requests for a loaded feature return an already resolved
// Future without invoking the loader again.
//
//	reg := feature.NewRegistry(feature.WithLogger(logger.New("registry")))
//	reg.MustRegister(feature.Descriptor{Name: "charts", Load: loadCharts})
//	fut, err := reg.Request("charts")
//	if err != nil {
//		return err // unknown feature: configuration error
//	}
//	mod, err := fut.Wait(ctx)
//
// Failures are never retried by the registry. Callers reset a failed feature
// explicitly with Reset and request it again.
package feature
