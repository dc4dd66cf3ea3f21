package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	apievents "github.com/kilianp07/lazyload/api/events"
	"github.com/kilianp07/lazyload/api/features"
	"github.com/kilianp07/lazyload/config"
	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/feature"
	"github.com/kilianp07/lazyload/core/lazy"
	coremetrics "github.com/kilianp07/lazyload/core/metrics"
	coremon "github.com/kilianp07/lazyload/core/monitoring"
	"github.com/kilianp07/lazyload/core/scheduler"
	"github.com/kilianp07/lazyload/infra/journal"
	"github.com/kilianp07/lazyload/infra/logger"
	"github.com/kilianp07/lazyload/infra/metrics"
	"github.com/kilianp07/lazyload/infra/monitoring"
	"github.com/kilianp07/lazyload/infra/mqtt"
	_ "github.com/kilianp07/lazyload/infra/source"
	"github.com/kilianp07/lazyload/infra/tracing"
	"github.com/kilianp07/lazyload/internal/eventbus"
)

// Service wires the registry, the preload scheduler and the lazy factory to
// the configured sources, sinks and transports.
type Service struct {
	Registry  *feature.Registry
	Scheduler *scheduler.Scheduler
	Factory   *lazy.Factory
	Bus       *eventbus.TypedBus[events.Event]

	cfg     *config.Config
	log     logger.Logger
	mon     coremon.Monitor
	sink    coremetrics.MetricsSink
	journal *journal.Journal
	mqtt    *mqtt.PahoClient

	closeOnce sync.Once
}

// New creates a Service from the configuration. Nothing is served until Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	bus := eventbus.NewTyped[events.Event]()
	observers := []events.Observer{
		events.ObserverFunc(bus.Publish),
		events.LogObserver{Log: logger.New("events")},
		coremon.Observer(mon),
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, tracing.New(cfg.Tracing))
	}
	obs := events.Combine(observers...)

	reg := feature.NewRegistry(
		feature.WithObserver(obs),
		feature.WithLogger(logger.New("registry")),
		feature.WithLoadTimeout(cfg.Scheduler.LoadTimeout()),
	)
	descs, err := cfg.Descriptors()
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	table, err := cfg.PredictionTable()
	if err != nil {
		return nil, err
	}

	lazyOpts := []lazy.Option{lazy.WithLogger(logger.New("lazy")), lazy.WithObserver(obs)}
	var idler scheduler.Idler = scheduler.DelayIdler{Delay: cfg.Scheduler.FallbackDelay()}
	if cfg.Scheduler.Idle == config.IdleActivity {
		ai := scheduler.NewActivityIdler(cfg.Scheduler.MaxIdleWait())
		ai.Delay = cfg.Scheduler.FallbackDelay()
		idler = ai
		lazyOpts = append(lazyOpts, lazy.WithActivity(ai))
	}
	sched := scheduler.New(reg, table,
		scheduler.WithIdler(idler),
		scheduler.WithObserver(obs),
		scheduler.WithLogger(logger.New("scheduler")),
	)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if l, ok := sink.(coremetrics.RouteLimiter); ok {
		l.LimitRoutes(table.Routes())
	}

	svc := &Service{
		Registry:  reg,
		Scheduler: sched,
		Factory:   lazy.NewFactory(reg, lazyOpts...),
		Bus:       bus,
		cfg:       cfg,
		log:       logg,
		mon:       mon,
		sink:      sink,
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal, logger.New("journal"))
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		svc.journal = j
	}
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT, mqtt.WithRouteHandler(svc.notifyRoute), mqtt.WithMonitor(mon))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}
	return svc, nil
}

func (s *Service) notifyRoute(route string) {
	if err := s.Scheduler.NotifyRoute(route); err != nil {
		s.log.Errorw("route notification failed", map[string]any{"route": route, "error": err})
	}
}

// Context returns ctx carrying the service's lazy factory.
func (s *Service) Context(ctx context.Context) context.Context {
	return lazy.WithFactory(ctx, s.Factory)
}

// Preload notifies route and waits until the scheduler has drained.
func (s *Service) Preload(ctx context.Context, route string) ([]feature.Status, error) {
	if err := s.Scheduler.NotifyRoute(route); err != nil {
		return nil, err
	}
	if err := s.Scheduler.WaitIdle(ctx); err != nil {
		return nil, err
	}
	return s.Registry.Snapshot(), nil
}

// Handler returns the control API. The journal is served under /events when
// configured.
func (s *Service) Handler() http.Handler {
	api := features.NewHandler(s.Registry, s.Factory, s.Scheduler, features.Config{
		Token:    s.cfg.HTTP.Token,
		LoadWait: s.cfg.HTTP.LoadWait(),
		Log:      logger.New("api"),
	})
	if s.journal == nil {
		return api
	}
	r := chi.NewRouter()
	r.Handle("/events", apievents.NewHandler(s.journal, s.cfg.HTTP.Token))
	r.Mount("/", api)
	return r
}

// Run starts the consumers and servers and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	var done []<-chan struct{}
	done = append(done, metrics.StartEventCollector(ctx, s.Bus, s.sink))
	if s.journal != nil {
		done = append(done, s.journal.Follow(ctx, s.Bus))
	}
	if s.mqtt != nil {
		done = append(done, s.mqtt.Forward(ctx, s.Bus))
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	errc := make(chan error, 1)
	if addr := s.cfg.HTTP.Address; addr != "" {
		go func() { errc <- s.serve(ctx, addr) }()
	}
	s.log.Infow("service started", map[string]any{"features": len(s.Registry.Names()), "http": s.cfg.HTTP.Address})

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}
	for _, d := range done {
		<-d
	}
	return err
}

func (s *Service) serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infow("http listening", map[string]any{"address": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		errs = append(errs, s.Scheduler.Close())
		if s.mqtt != nil {
			s.mqtt.Disconnect()
		}
		s.Bus.Close()
		if s.journal != nil {
			errs = append(errs, s.journal.Close())
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		s.mon.Flush(2 * time.Second)
	})
	return errors.Join(errs...)
}
