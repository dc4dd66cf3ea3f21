package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/lazyload/core/metrics"
)

// PromSink records feature loading in Prometheus metrics.
type PromSink struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	queued   *prometheus.CounterVec
	preload  *prometheus.CounterVec
	routes   *prometheus.CounterVec
	retries  *prometheus.CounterVec

	known routeSet
}

// NewPromSink registers the loader metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_loads_total",
			Help: "Finished feature loads by outcome",
		}, []string{"feature", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feature_load_duration_seconds",
			Help:    "Time spent in feature loaders",
			Buckets: prometheus.DefBuckets,
		}, []string{"feature", "success"}),
		queued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_preload_queued_total",
			Help: "Features added to the preload queue",
		}, []string{"feature", "route"}),
		preload: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_preload_failures_total",
			Help: "Predictive loads that failed",
		}, []string{"feature"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "route_notifications_total",
			Help: "Route changes reported by the navigation layer",
		}, []string{"route"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_retries_total",
			Help: "User-triggered retries and their successes",
		}, []string{"feature", "succeeded"}),
	}
	var err error
	if s.loads, err = register(reg, s.loads); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.queued, err = register(reg, s.queued); err != nil {
		return nil, err
	}
	if s.preload, err = register(reg, s.preload); err != nil {
		return nil, err
	}
	if s.routes, err = register(reg, s.routes); err != nil {
		return nil, err
	}
	if s.retries, err = register(reg, s.retries); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordLoad counts the load and observes its duration.
func (s *PromSink) RecordLoad(ev coremetrics.LoadEvent) error {
	ok := strconv.FormatBool(ev.Success)
	s.loads.WithLabelValues(ev.Feature, ok).Inc()
	s.duration.WithLabelValues(ev.Feature, ok).Observe(ev.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordQueued(ev coremetrics.QueueEvent) error {
	s.queued.WithLabelValues(ev.Feature, s.known.label(ev.Route)).Inc()
	return nil
}

func (s *PromSink) RecordPreloadFailure(ev coremetrics.PreloadFailureEvent) error {
	s.preload.WithLabelValues(ev.Feature).Inc()
	return nil
}

func (s *PromSink) RecordRoute(ev coremetrics.RouteEvent) error {
	s.routes.WithLabelValues(s.known.label(ev.Route)).Inc()
	return nil
}

func (s *PromSink) RecordRetry(ev coremetrics.RetryEvent) error {
	s.retries.WithLabelValues(ev.Feature, strconv.FormatBool(ev.Succeeded)).Inc()
	return nil
}

// LimitRoutes restricts the route label to routes. Anything else is counted
// under "other".
func (s *PromSink) LimitRoutes(routes []string) { s.known.limit(routes) }
