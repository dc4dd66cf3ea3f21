package lazy

import (
	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/logger"
)

// Activity marks interactive work in progress. *scheduler.ActivityIdler
// implements it, which keeps predictive preloads off while a handle loads.
type Activity interface {
	Begin() (end func())
}

type options struct {
	log      logger.Logger
	obs      events.Observer
	activity Activity
}

// Option configures a Factory or a Boundary.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = logger.OrNop(l) }
}

// WithObserver sets the event observer.
func WithObserver(obs events.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.obs = obs
		}
	}
}

// WithActivity reports every handle load to a as interactive work. Boundaries
// ignore it.
func WithActivity(a Activity) Option {
	return func(o *options) { o.activity = a }
}

func buildOptions(opts []Option) options {
	o := options{log: logger.NopLogger{}, obs: events.Nop{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) begin() func() {
	if o.activity == nil {
		return func() {}
	}
	return o.activity.Begin()
}
