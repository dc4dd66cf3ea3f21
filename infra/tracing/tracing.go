// Package tracing turns loading events into OpenTelemetry spans: one span per
// loader invocation, from LoadStarted to Loaded or LoadFailed.
//
// The tracer comes from the global provider unless WithTracer is given.
// Configure the provider in main before building the observer:
//
//	otel.SetTracerProvider(tp)
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kilianp07/lazyload/core/events"
)

const defaultTracerName = "lazyload"

// Config selects the tracer.
type Config struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracer_name" yaml:"tracer_name"`
}

// Option configures the observer.
type Option func(*Observer)

// WithTracer overrides the tracer resolved from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Observer) { o.tracer = t }
}

// Observer implements events.Observer.
type Observer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// New returns an observer using cfg.TracerName.
func New(cfg Config, opts ...Option) *Observer {
	name := cfg.TracerName
	if name == "" {
		name = defaultTracerName
	}
	o := &Observer{spans: make(map[string]trace.Span)}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(name)
	}
	return o
}

func (o *Observer) Observe(e events.Event) {
	switch e.Kind {
	case events.LoadStarted:
		o.start(e)
	case events.Loaded, events.LoadFailed:
		o.finish(e)
	}
}

func (o *Observer) start(e events.Event) {
	if e.Attempt == "" {
		return
	}
	_, span := o.tracer.Start(context.Background(), "lazyload.load "+e.Feature,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(e.Time),
		trace.WithAttributes(
			attribute.String("lazyload.feature", e.Feature),
			attribute.String("lazyload.attempt", e.Attempt),
		),
	)
	o.mu.Lock()
	o.spans[e.Attempt] = span
	o.mu.Unlock()
}

func (o *Observer) finish(e events.Event) {
	o.mu.Lock()
	span, ok := o.spans[e.Attempt]
	delete(o.spans, e.Attempt)
	o.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("lazyload.duration_ms", e.Duration.Milliseconds()))
	if e.Kind == events.LoadFailed {
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.SetStatus(codes.Error, e.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

// Open returns the number of loads with an unfinished span.
func (o *Observer) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.spans)
}
