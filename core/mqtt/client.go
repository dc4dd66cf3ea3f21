// Package mqtt defines the broker-facing boundary of the loader: route changes
// arrive from the navigation layer and loading events are published back.
package mqtt

import "github.com/kilianp07/lazyload/core/events"

// RouteHandler receives route identifiers reported over the broker.
type RouteHandler func(route string)

// EventPublisher publishes loading events.
type EventPublisher interface {
	PublishEvent(ev events.Event) error
}
