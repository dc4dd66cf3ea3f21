package metrics

import (
	"context"

	"github.com/kilianp07/lazyload/core/events"
	coremetrics "github.com/kilianp07/lazyload/core/metrics"
	"github.com/kilianp07/lazyload/infra/logger"
	"github.com/kilianp07/lazyload/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// loading events. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnw("metrics sink error", map[string]any{"kind": ev.Kind.String(), "error": err})
				}
			}
		}
	}()
	return done
}

// Record translates one event into the matching sink call. Sinks lacking the
// optional recorder for an event kind ignore it.
func Record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch ev.Kind {
	case events.Loaded, events.LoadFailed:
		return sink.RecordLoad(coremetrics.LoadEvent{
			Feature:  ev.Feature,
			Attempt:  ev.Attempt,
			Success:  ev.Kind == events.Loaded,
			Error:    ev.Error,
			Duration: ev.Duration,
			Time:     ev.Time,
		})
	case events.Queued:
		if r, ok := sink.(coremetrics.QueueRecorder); ok {
			return r.RecordQueued(coremetrics.QueueEvent{Feature: ev.Feature, Route: ev.Route, Time: ev.Time})
		}
	case events.PreloadFailed:
		if r, ok := sink.(coremetrics.PreloadFailureRecorder); ok {
			return r.RecordPreloadFailure(coremetrics.PreloadFailureEvent{Feature: ev.Feature, Route: ev.Route, Error: ev.Error, Time: ev.Time})
		}
	case events.RouteNotified:
		if r, ok := sink.(coremetrics.RouteRecorder); ok {
			return r.RecordRoute(coremetrics.RouteEvent{Route: ev.Route, Time: ev.Time})
		}
	case events.RetryRequested, events.RetrySucceeded:
		if r, ok := sink.(coremetrics.RetryRecorder); ok {
			return r.RecordRetry(coremetrics.RetryEvent{Feature: ev.Feature, Succeeded: ev.Kind == events.RetrySucceeded, Time: ev.Time})
		}
	}
	return nil
}
