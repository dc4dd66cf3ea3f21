package metrics

import "time"

// LoadEvent is one finished loader invocation.
type LoadEvent struct {
	Feature  string
	Attempt  string
	Success  bool
	Error    string
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records finished loads.
type MetricsSink interface {
	RecordLoad(ev LoadEvent) error
}

// OtherRoute labels routes outside the limit set by RouteLimiter.
const OtherRoute = "other"

// RouteLimiter is implemented by sinks that bound the set of route labels they
// emit. Routes missing from the list are recorded as OtherRoute.
type RouteLimiter interface {
	LimitRoutes(routes []string)
}

// QueueEvent is a feature entering the preload queue.
type QueueEvent struct {
	Feature string
	Route   string
	Time    time.Time
}

// QueueRecorder records preload queue insertions.
type QueueRecorder interface {
	RecordQueued(ev QueueEvent) error
}

// PreloadFailureEvent is a predictive load that failed and was swallowed.
type PreloadFailureEvent struct {
	Feature string
	Route   string
	Error   string
	Time    time.Time
}

// PreloadFailureRecorder records swallowed predictive failures.
type PreloadFailureRecorder interface {
	RecordPreloadFailure(ev PreloadFailureEvent) error
}

// RouteEvent is a route change reported by the navigation layer.
type RouteEvent struct {
	Route string
	Time  time.Time
}

// RouteRecorder records route notifications.
type RouteRecorder interface {
	RecordRoute(ev RouteEvent) error
}

// RetryEvent is a user-triggered retry or its success.
type RetryEvent struct {
	Feature   string
	Succeeded bool
	Time      time.Time
}

// RetryRecorder records retries.
type RetryRecorder interface {
	RecordRetry(ev RetryEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordLoad(LoadEvent) error                     { return nil }
func (NopSink) RecordQueued(QueueEvent) error                  { return nil }
func (NopSink) RecordPreloadFailure(PreloadFailureEvent) error { return nil }
func (NopSink) RecordRoute(RouteEvent) error                   { return nil }
func (NopSink) RecordRetry(RetryEvent) error                   { return nil }
