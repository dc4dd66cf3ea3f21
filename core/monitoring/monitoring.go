// Package monitoring reports feature load failures to an external error
// tracker.
package monitoring

import (
	"time"

	"github.com/kilianp07/lazyload/core/events"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// OrNop returns m, or NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// Observer forwards load failures to m. Swallowed predictive failures are
// reported too, tagged predictive=true, since nobody else will see them.
func Observer(m Monitor) events.Observer {
	m = OrNop(m)
	return events.ObserverFunc(func(e events.Event) {
		if e.Err == nil {
			return
		}
		switch e.Kind {
		case events.LoadFailed:
			m.CaptureException(e.Err, map[string]string{"module": "registry", "feature": e.Feature, "attempt": e.Attempt})
		case events.PreloadFailed:
			m.CaptureException(e.Err, map[string]string{"module": "scheduler", "feature": e.Feature, "route": e.Route, "predictive": "true"})
		}
	})
}
