package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every Prometheus metric exported by the service.
const Namespace = "evload"

// PromSink records forecasting activity in Prometheus metrics.
type PromSink struct {
	forecasts   *prometheus.CounterVec
	peak        *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	duration    *prometheus.HistogramVec
	fleet       *prometheus.GaugeVec
	fleetFailed prometheus.Gauge
	decisions   *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
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
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "forecasts_total",
			Help:      "Total number of station forecasts by risk level",
		}, []string{"demand_risk", "infra_risk"}),
		peak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "forecast_peak_kw",
			Help:      "Peak of the latest forecast per station",
		}, []string{"station_id"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "station_utilization_pct",
			Help:      "Forecast peak as a percentage of station capacity",
		}, []string{"station_id"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent building forecasts and fleet snapshots",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		fleet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "fleet_stations",
			Help:      "Number of stations per infrastructure risk in the latest snapshot",
		}, []string{"risk"}),
		fleetFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "fleet_failed_stations",
			Help:      "Number of stations skipped in the latest snapshot",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decisions_total",
			Help:      "Total number of capacity decisions by level",
		}, []string{"level"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "failures_total",
			Help:      "Total number of failed operations",
		}, []string{"operation", "kind"}),
	}

	var err error
	if s.forecasts, err = register(reg, s.forecasts); err != nil {
		return nil, err
	}
	if s.peak, err = register(reg, s.peak); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.fleet, err = register(reg, s.fleet); err != nil {
		return nil, err
	}
	if s.fleetFailed, err = register(reg, s.fleetFailed); err != nil {
		return nil, err
	}
	if s.decisions, err = register(reg, s.decisions); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
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

// RecordForecast counts the forecast and updates the station gauges.
func (s *PromSink) RecordForecast(ev coremetrics.ForecastEvent) error {
	infra := ev.InfraRisk
	if infra == "" {
		infra = "none"
	}
	s.forecasts.WithLabelValues(ev.DemandRisk, infra).Inc()
	s.peak.WithLabelValues(ev.StationID).Set(ev.Peak)
	if ev.InfraRisk != "" {
		s.utilization.WithLabelValues(ev.StationID).Set(ev.UtilizationPct)
	}
	s.duration.WithLabelValues("forecast").Observe(ev.Duration.Seconds())
	return nil
}

// RecordFleetSnapshot replaces the per-risk station counts.
func (s *PromSink) RecordFleetSnapshot(ev coremetrics.FleetSnapshotEvent) error {
	counts := map[string]int{
		model.InfraStable.String():       0,
		model.InfraNearCapacity.String(): 0,
		model.InfraOverload.String():     0,
	}
	for _, st := range ev.Stations {
		counts[st.Risk]++
		s.peak.WithLabelValues(st.StationID).Set(st.PeakForecast)
		s.utilization.WithLabelValues(st.StationID).Set(st.UtilizationPct)
	}
	for risk, n := range counts {
		s.fleet.WithLabelValues(risk).Set(float64(n))
	}
	s.fleetFailed.Set(float64(ev.Failures))
	s.duration.WithLabelValues("fleet").Observe(ev.Duration.Seconds())
	return nil
}

// RecordDecision counts the decision by level.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Level).Inc()
	return nil
}

// RecordFailure counts the failure by operation and kind.
func (s *PromSink) RecordFailure(ev coremetrics.FailureEvent) error {
	s.failures.WithLabelValues(ev.Operation, ev.Kind).Inc()
	return nil
}
