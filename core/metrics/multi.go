package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink is tried; the errors
// are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordLoad(ev LoadEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordLoad(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordQueued(ev QueueEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(QueueRecorder); ok {
			errs = append(errs, r.RecordQueued(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPreloadFailure(ev PreloadFailureEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PreloadFailureRecorder); ok {
			errs = append(errs, r.RecordPreloadFailure(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRoute(ev RouteEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RouteRecorder); ok {
			errs = append(errs, r.RecordRoute(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRetry(ev RetryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RetryRecorder); ok {
			errs = append(errs, r.RecordRetry(ev))
		}
	}
	return errors.Join(errs...)
}

// LimitRoutes forwards the route limit to every sink supporting it.
func (m *MultiSink) LimitRoutes(routes []string) {
	for _, s := range m.Sinks {
		if l, ok := s.(RouteLimiter); ok {
			l.LimitRoutes(routes)
		}
	}
}
