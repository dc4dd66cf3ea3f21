package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/feature"
	"github.com/kilianp07/lazyload/core/logger"
	"github.com/kilianp07/lazyload/core/prediction"
)

// ErrClosed is returned by Enqueue and NotifyRoute after Close.
var ErrClosed = errors.New("scheduler closed")

// Loader is the part of the feature registry the scheduler relies on.
type Loader interface {
	RequestQueued(name string) (*feature.Future, bool, error)
	MarkQueued(name string) (bool, error)
	Unqueue(name string)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithIdler sets the idle signal. Defaults to DelayIdler{}.
func WithIdler(i Idler) Option {
	return func(s *Scheduler) {
		if i != nil {
			s.idler = i
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o events.Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = logger.OrNop(l) }
}

type queued struct {
	name  string
	route string
}

// Scheduler owns the preload queue.
type Scheduler struct {
	reg   Loader
	pred  prediction.Predictor
	idler Idler
	obs   events.Observer
	log   logger.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	queue     []queued
	scheduled bool
	cancel    func()
	closed    bool
	busy      bool
	idle      chan struct{}
}

// New returns a Scheduler loading through reg and predicting with pred. A nil
// predictor predicts nothing.
func New(reg Loader, pred prediction.Predictor, opts ...Option) *Scheduler {
	if pred == nil {
		pred = prediction.Static(nil)
	}
	s := &Scheduler{
		reg:   reg,
		pred:  pred,
		idler: DelayIdler{},
		obs:   events.Nop{},
		log:   logger.NopLogger{},
		idle:  make(chan struct{}),
	}
	close(s.idle)
	s.ctx, s.stop = context.WithCancel(context.Background())
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NotifyRoute enqueues every feature predicted for route, in table order.
// Routes missing from the table are ignored. The returned error only reports
// configuration problems such as unknown feature names.
func (s *Scheduler) NotifyRoute(route string) error {
	if s.isClosed() {
		return ErrClosed
	}
	names := s.pred.Predict(route)
	events.Emit(s.obs, events.Event{Kind: events.RouteNotified, Route: route})
	var errs []error
	for _, name := range names {
		if err := s.enqueue(name, route); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Enqueue adds name to the preload queue if it is still Unregistered. It is a
// no-op for features that are queued, loading, loaded or failed.
func (s *Scheduler) Enqueue(name string) error {
	return s.enqueue(name, "")
}

func (s *Scheduler) enqueue(name, route string) error {
	if s.isClosed() {
		return ErrClosed
	}
	ok, err := s.reg.MarkQueued(name)
	if err != nil {
		s.log.Errorw("cannot enqueue feature", map[string]any{"feature": name, "route": route, "error": err})
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.reg.Unqueue(name)
		return ErrClosed
	}
	s.queue = append(s.queue, queued{name: name, route: route})
	s.markBusyLocked()
	s.scheduleLocked()
	s.mu.Unlock()
	events.Emit(s.obs, events.Event{Kind: events.Queued, Feature: name, Route: route})
	return nil
}

// Pending returns the queued names in drain order.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queue))
	for i, q := range s.queue {
		out[i] = q.name
	}
	return out
}

// Len returns the queue length.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// WaitIdle blocks until the queue is empty and no drain is in flight.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops scheduling. A scheduled drain is cancelled and a running one
// stops waiting for its load; the load itself runs to completion. Features
// still in the queue return to Unregistered.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	dropped := s.queue
	s.queue = nil
	s.settleLocked()
	s.mu.Unlock()
	s.stop()
	for _, q := range dropped {
		s.reg.Unqueue(q.name)
	}
	return nil
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// scheduleLocked arranges one drain unless one is already scheduled or running.
func (s *Scheduler) scheduleLocked() {
	if s.scheduled || s.closed || len(s.queue) == 0 {
		return
	}
	s.scheduled = true
	s.cancel = s.idler.Schedule(s.drain)
}

func (s *Scheduler) markBusyLocked() {
	if !s.busy {
		s.busy = true
		s.idle = make(chan struct{})
	}
}

func (s *Scheduler) settleLocked() {
	if s.busy {
		s.busy = false
		close(s.idle)
	}
}

// drain loads exactly one queued feature, then reschedules itself while the
// queue is not empty.
func (s *Scheduler) drain() {
	s.mu.Lock()
	s.cancel = nil
	if s.closed || len(s.queue) == 0 {
		s.scheduled = false
		s.settleLocked()
		s.mu.Unlock()
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	if err := s.preload(next.name); err != nil {
		s.log.Warnw("predictive load failed", map[string]any{
			"feature": next.name,
			"route":   next.route,
			"error":   err,
		})
		events.Emit(s.obs, events.Event{Kind: events.PreloadFailed, Feature: next.name, Route: next.route, Err: err})
	}

	s.mu.Lock()
	s.scheduled = false
	s.scheduleLocked()
	if !s.scheduled {
		s.settleLocked()
	}
	s.mu.Unlock()
}

// preload loads name unless it left the Queued state since it was enqueued.
// A feature that failed a direct request meanwhile is not retried.
func (s *Scheduler) preload(name string) error {
	f, ok, err := s.reg.RequestQueued(name)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debugw("skipping dequeued feature", map[string]any{"feature": name})
		return nil
	}
	_, err = f.Wait(s.ctx)
	return err
}
