package events

import (
	"sync"
	"time"

	"github.com/kilianp07/lazyload/core/logger"
)

// Observer receives loading events. Implementations must not block for long:
// events are delivered inline from the registry and scheduler.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Nop discards events.
type Nop struct{}

func (Nop) Observe(Event) {}

// Multi fans out to every observer in order.
type Multi []Observer

func (m Multi) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Combine returns a single observer for the non-nil inputs.
func Combine(obs ...Observer) Observer {
	var out Multi
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	}
	return out
}

// Emit stamps the event time, fills the error text and delivers it.
func Emit(o Observer, e Event) {
	if o == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Err != nil && e.Error == "" {
		e.Error = e.Err.Error()
	}
	o.Observe(e)
}

// Recorder keeps every event it observes.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds recorded for feature, in order.
func (r *Recorder) Kinds(feature string) []Kind {
	var out []Kind
	for _, e := range r.Events() {
		if e.Feature == feature {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Count returns how many events of kind were recorded for feature.
// An empty feature matches all.
func (r *Recorder) Count(kind Kind, feature string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind && (feature == "" || e.Feature == feature) {
			n++
		}
	}
	return n
}

// LogObserver writes one structured log line per event. LoadFailed stays at
// debug level because the registry already logs load failures at error level.
type LogObserver struct {
	Log logger.Logger
}

func (o LogObserver) Observe(e Event) {
	l := logger.OrNop(o.Log)
	switch e.Kind {
	case PreloadFailed:
		l.Warnw(e.Kind.String(), e.Fields())
	case Queued, RouteNotified, LoadFailed:
		l.Debugw(e.Kind.String(), e.Fields())
	default:
		l.Infow(e.Kind.String(), e.Fields())
	}
}
