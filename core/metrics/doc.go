// Package metrics defines the sinks recording forecasting activity.
//
// A MetricsSink records single station forecasts. Sinks may also implement
// FleetRecorder, DecisionRecorder or FailureRecorder; MultiSink forwards to
// whichever of those its members support. Concrete sinks (Prometheus,
// InfluxDB) live in infra/metrics and register themselves with
// RegisterMetricsSink so configuration can select them by type name.
package metrics
