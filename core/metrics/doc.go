// Package metrics defines the sinks that record feature loading activity.
// Every sink implements MetricsSink for finished loads; the optional recorder
// interfaces cover queue, route, preload failure and retry events. Sinks are
// built from configuration with NewMetricsSink, which returns a MultiSink when
// several are configured.
package metrics
