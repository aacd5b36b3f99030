package metrics

import "time"

// ForecastEvent describes one completed station forecast.
type ForecastEvent struct {
	StationID      string
	Horizon        int
	GrowthPct      float64
	Average        float64
	Peak           float64
	ResidualStd    float64
	DemandRisk     string
	InfraRisk      string
	UtilizationPct float64
	Duration       time.Duration
	Time           time.Time
}

// MetricsSink records station forecasts.
type MetricsSink interface {
	RecordForecast(ev ForecastEvent) error
}

// FleetStation is the per-station part of a fleet snapshot.
type FleetStation struct {
	StationID      string
	Zone           string
	PeakForecast   float64
	UtilizationPct float64
	Risk           string
}

// FleetSnapshotEvent describes one fleet aggregation.
type FleetSnapshotEvent struct {
	Stations []FleetStation
	Failures int
	Duration time.Duration
	Time     time.Time
}

// FleetRecorder records fleet snapshots.
type FleetRecorder interface {
	RecordFleetSnapshot(ev FleetSnapshotEvent) error
}

// DecisionEvent describes one demand/capacity decision.
type DecisionEvent struct {
	Demand     float64
	CapacityKW float64
	Ratio      float64
	Level      string
	Time       time.Time
}

// DecisionRecorder records decisions.
type DecisionRecorder interface {
	RecordDecision(ev DecisionEvent) error
}

// FailureEvent describes a failed operation. Kind is a short error class
// such as "insufficient_history".
type FailureEvent struct {
	Operation string
	StationID string
	Kind      string
	Time      time.Time
}

// FailureRecorder records failures.
type FailureRecorder interface {
	RecordFailure(ev FailureEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordForecast(ForecastEvent) error           { return nil }
func (NopSink) RecordFleetSnapshot(FleetSnapshotEvent) error { return nil }
func (NopSink) RecordDecision(DecisionEvent) error           { return nil }
func (NopSink) RecordFailure(FailureEvent) error             { return nil }
