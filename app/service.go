package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evload/api"
	"github.com/kilianp07/evload/app/plugins"
	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/events"
	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	coremon "github.com/kilianp07/evload/core/monitoring"
	coremqtt "github.com/kilianp07/evload/core/mqtt"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/infra/logger"
	"github.com/kilianp07/evload/infra/metrics"
	"github.com/kilianp07/evload/infra/monitoring"
	"github.com/kilianp07/evload/infra/mqtt"
	_ "github.com/kilianp07/evload/infra/predictor"
	"github.com/kilianp07/evload/internal/eventbus"
)

// snapshotStore keeps fleet snapshot history.
type snapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *fleet.Snapshot) (string, error)
}

// Service wires the data source, the model, the forecasting pipeline and the
// fleet aggregator to the API, metrics, MQTT and the run log.
type Service struct {
	cfg       *config.Config
	source    store.Source
	predictor prediction.Predictor
	pipeline  *forecast.Pipeline
	agg       *fleet.Aggregator
	decision  risk.DecisionRules
	runs      runlog.Store
	sink      coremetrics.MetricsSink
	bus       *eventbus.Bus[events.Event]
	publisher coremqtt.RiskPublisher
	client    *mqtt.PahoClient
	history   snapshotStore
	clock     clockwork.Clock
	log       logger.Logger

	mu      sync.RWMutex
	snap    *fleet.Snapshot
	refresh chan struct{}
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

// WithSource uses src instead of opening cfg.Data.
func WithSource(src store.Source) Option { return func(s *Service) { s.source = src } }

// WithPredictor uses p instead of building cfg.Model.
func WithPredictor(p prediction.Predictor) Option { return func(s *Service) { s.predictor = p } }

// WithRunLog uses r instead of building cfg.Logging.
func WithRunLog(r runlog.Store) Option { return func(s *Service) { s.runs = r } }

// WithPublisher distributes snapshots through p instead of an MQTT client.
func WithPublisher(p coremqtt.RiskPublisher) Option { return func(s *Service) { s.publisher = p } }

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	s := &Service{
		cfg:      cfg,
		decision: cfg.Risk.Decision,
		clock:    clockwork.NewRealClock(),
		log:      logger.New("service"),
		bus:      eventbus.New[events.Event](eventbus.WithBuffer(256)),
		refresh:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	if s.source == nil {
		src, err := plugins.NewSource(ctx, cfg.Data)
		if err != nil {
			return nil, fmt.Errorf("data source: %w", err)
		}
		s.source = src
	}
	if s.predictor == nil {
		p, err := prediction.New(cfg.Model)
		if err != nil {
			_ = s.closeSource()
			return nil, fmt.Errorf("model: %w", err)
		}
		s.predictor = p
	}
	s.pipeline = forecast.NewPipeline(s.predictor, cfg.Forecast,
		forecast.WithInfraThresholds(cfg.Risk.Infrastructure), forecast.WithClock(s.clock))
	s.agg = fleet.NewAggregator(s.pipeline, cfg.Risk.Infrastructure, cfg.Fleet,
		fleet.WithLogger(logger.New("fleet")), fleet.WithClock(s.clock))

	if s.runs == nil {
		runs, err := plugins.NewRunLog(ctx, cfg.Logging)
		if err != nil {
			_ = s.closeSource()
			return nil, fmt.Errorf("run log: %w", err)
		}
		s.runs = runs
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = s.closeSource()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	s.sink = sink

	if cfg.Data.SnapshotHistory {
		if h, ok := s.source.(snapshotStore); ok {
			s.history = h
		} else {
			s.log.Warnf("snapshot history requested but source %s cannot store it", cfg.Data.Source)
		}
	}

	if s.publisher == nil && cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = s.closeSource()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		client.OnRefresh(s.TriggerRefresh)
		s.client = client
		s.publisher = client
	}
	if s.publisher == nil {
		s.publisher = coremqtt.NopPublisher{}
	}
	return s, nil
}

// Pipeline returns the forecasting pipeline.
func (s *Service) Pipeline() *forecast.Pipeline { return s.pipeline }

// Source returns the observation and metadata source.
func (s *Service) Source() store.Source { return s.source }

// Bus returns the event bus the service publishes on.
func (s *Service) Bus() eventbus.EventBus[events.Event] { return s.bus }

// Run starts the metrics collector, the optional HTTP endpoints and the
// fleet refresh loop. It blocks until ctx is cancelled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	collectorDone := metrics.StartEventCollector(gctx, s.bus, s.sink)

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error {
			if err := metrics.StartPromServer(gctx, addr); err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
			return nil
		})
	}
	if addr := s.cfg.API.Address; addr != "" {
		srv := api.NewServer(addr, s.apiDeps(), time.Duration(s.cfg.API.ReadTimeoutSeconds)*time.Second)
		g.Go(func() error {
			s.log.Infof("api listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error { return s.refreshLoop(gctx) })

	err := g.Wait()
	<-collectorDone
	return err
}

func (s *Service) apiDeps() api.Deps {
	return api.Deps{
		Source:   s.source,
		Pipeline: s.pipeline,
		Fleet:    s.Fleet,
		Decision: s.decision,
		Runs:     s.runs,
		Bus:      s.bus,
		Clock:    s.clock,
		Log:      logger.New("api"),
		Token:    s.cfg.API.BearerToken,
		Timeout:  time.Duration(s.cfg.API.RequestTimeoutSeconds) * time.Second,
	}
}

// Handler exposes the API routes, mainly for tests.
func (s *Service) Handler() http.Handler { return api.NewRouter(s.apiDeps()) }

func (s *Service) refreshLoop(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.log.Errorf("initial fleet refresh: %v", err)
	}
	interval := time.Duration(s.cfg.Fleet.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		case <-s.refresh:
		}
		if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Errorf("fleet refresh: %v", err)
		}
	}
}

// TriggerRefresh asks the running loop for a new snapshot. Requests made
// while one is pending are merged.
func (s *Service) TriggerRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Refresh aggregates the fleet, caches the snapshot and distributes it to
// the bus, the run log, the snapshot history and the MQTT publisher.
func (s *Service) Refresh(ctx context.Context) (*fleet.Snapshot, error) {
	start := s.clock.Now()
	snap, err := s.agg.Snapshot(ctx, s.source)
	if err != nil {
		s.failure("fleet", "", err)
		return nil, err
	}
	for _, f := range snap.Failures {
		s.failure("fleet", f.StationID, f.Err)
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.bus.Publish(events.FleetEvent{Snapshot: snap, Duration: s.clock.Since(start)})
	if err := s.runs.Append(ctx, runlog.FromSnapshot(snap)); err != nil {
		s.log.Errorf("run log append: %v", err)
	}
	if s.history != nil {
		if _, err := s.history.SaveSnapshot(ctx, snap); err != nil {
			s.log.Errorf("save snapshot: %v", err)
		}
	}
	alerts, err := s.publisher.PublishSnapshot(ctx, snap)
	if err != nil {
		s.log.Warnf("publish snapshot: %v", err)
		coremon.CaptureException(err, map[string]string{"operation": "publish"})
	}
	s.log.Infow("fleet refreshed", map[string]any{
		"stations": len(snap.Records),
		"failures": len(snap.Failures),
		"alerts":   alerts,
	})
	return snap, nil
}

// Fleet returns the cached snapshot, computing one when none exists yet or
// when refresh is set.
func (s *Service) Fleet(ctx context.Context, refresh bool) (*fleet.Snapshot, error) {
	if !refresh {
		s.mu.RLock()
		snap := s.snap
		s.mu.RUnlock()
		if snap != nil {
			return snap, nil
		}
	}
	return s.Refresh(ctx)
}

// Forecast builds the report of one station. Stations without metadata are
// reported without infrastructure utilization.
func (s *Service) Forecast(ctx context.Context, stationID string, horizon int, growthPct float64) (*forecast.Report, error) {
	series, err := s.source.Series(ctx, stationID)
	if err != nil {
		s.failure("forecast", stationID, err)
		return nil, err
	}
	var meta *model.StationMetadata
	m, err := s.source.Metadata(ctx, stationID)
	switch {
	case err == nil:
		meta = &m
	case errors.Is(err, store.ErrMissingMetadata):
	default:
		s.failure("forecast", stationID, err)
		return nil, err
	}
	start := s.clock.Now()
	rep, err := s.pipeline.Report(ctx, series, meta, horizon, growthPct)
	if err != nil {
		s.failure("forecast", stationID, err)
		return nil, err
	}
	s.bus.Publish(events.ForecastEvent{Report: rep, Duration: s.clock.Since(start)})
	if err := s.runs.Append(ctx, runlog.FromReport(rep)); err != nil {
		s.log.Errorf("run log append: %v", err)
	}
	return rep, nil
}

// Decide applies the configured decision rules.
func (s *Service) Decide(demand, capacityKW float64) (risk.Decision, error) {
	d, err := s.decision.Decide(demand, capacityKW)
	if err != nil {
		s.failure("decision", "", err)
		return d, err
	}
	s.bus.Publish(events.DecisionEvent{Decision: d, Time: s.clock.Now()})
	return d, nil
}

func (s *Service) failure(op, stationID string, err error) {
	s.bus.Publish(events.FailureEvent{Operation: op, StationID: stationID, Err: err, Time: s.clock.Now()})
	if metrics.ErrorKind(err) == "internal" {
		coremon.CaptureException(err, coremon.StationTags(stationID, op))
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("run log: %w", err))
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.closeSource(); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func (s *Service) closeSource() error {
	if c, ok := s.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
