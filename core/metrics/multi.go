package metrics

import "errors"

// MultiSink fans events out to multiple sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordForecast forwards to all sinks.
func (m *MultiSink) RecordForecast(ev ForecastEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordForecast(ev))
	}
	return errors.Join(errs...)
}

// RecordFleetSnapshot forwards to sinks implementing FleetRecorder.
func (m *MultiSink) RecordFleetSnapshot(ev FleetSnapshotEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FleetRecorder); ok {
			errs = append(errs, r.RecordFleetSnapshot(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordDecision forwards to sinks implementing DecisionRecorder.
func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DecisionRecorder); ok {
			errs = append(errs, r.RecordDecision(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordFailure forwards to sinks implementing FailureRecorder.
func (m *MultiSink) RecordFailure(ev FailureEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FailureRecorder); ok {
			errs = append(errs, r.RecordFailure(ev))
		}
	}
	return errors.Join(errs...)
}
