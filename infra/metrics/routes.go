package metrics

import (
	"sync"

	coremetrics "github.com/kilianp07/lazyload/core/metrics"
)

// routeSet bounds the route label values a sink emits. The zero value lets
// every route through.
type routeSet struct {
	mu    sync.RWMutex
	known map[string]struct{}
}

func (r *routeSet) limit(routes []string) {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}
	r.mu.Lock()
	r.known = known
	r.mu.Unlock()
}

func (r *routeSet) label(route string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.known == nil {
		return route
	}
	if _, ok := r.known[route]; ok {
		return route
	}
	return coremetrics.OtherRoute
}
