package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/evload/core/metrics"
)

func TestPromSink_RecordForecast(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.ForecastEvent{
		StationID:      "A",
		Peak:           30,
		DemandRisk:     "HIGH",
		InfraRisk:      "NEAR_CAPACITY",
		UtilizationPct: 75,
		Duration:       10 * time.Millisecond,
	}
	if err := sink.RecordForecast(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP evload_forecasts_total Total number of station forecasts by risk level
# TYPE evload_forecasts_total counter
evload_forecasts_total{demand_risk="HIGH",infra_risk="NEAR_CAPACITY"} 1
`
	if err := testutil.CollectAndCompare(sink.forecasts, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.utilization.WithLabelValues("A")); v != 75 {
		t.Errorf("utilization = %v, want 75", v)
	}
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}
}

func TestPromSink_ForecastWithoutCapacity(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordForecast(coremetrics.ForecastEvent{StationID: "A", DemandRisk: "LOW", Peak: 4}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if v := testutil.ToFloat64(sink.forecasts.WithLabelValues("LOW", "none")); v != 1 {
		t.Errorf("forecasts = %v, want 1", v)
	}
	if c := testutil.CollectAndCount(sink.utilization); c != 0 {
		t.Errorf("utilization should not be set without capacity, got %d series", c)
	}
}

func TestPromSink_RecordFleetSnapshot(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.FleetSnapshotEvent{
		Stations: []coremetrics.FleetStation{
			{StationID: "A", PeakForecast: 95, UtilizationPct: 95, Risk: "OVERLOAD"},
			{StationID: "B", PeakForecast: 75, UtilizationPct: 75, Risk: "NEAR_CAPACITY"},
		},
		Failures: 2,
	}
	if err := sink.RecordFleetSnapshot(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	want := map[string]float64{"STABLE": 0, "NEAR_CAPACITY": 1, "OVERLOAD": 1}
	for risk, n := range want {
		if v := testutil.ToFloat64(sink.fleet.WithLabelValues(risk)); v != n {
			t.Errorf("fleet[%s] = %v, want %v", risk, v, n)
		}
	}
	if v := testutil.ToFloat64(sink.fleetFailed); v != 2 {
		t.Errorf("failed = %v, want 2", v)
	}
}

func TestPromSink_DecisionsAndFailures(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordDecision(coremetrics.DecisionEvent{Level: "HIGH"})
	_ = sink.RecordDecision(coremetrics.DecisionEvent{Level: "HIGH"})
	_ = sink.RecordFailure(coremetrics.FailureEvent{Operation: "forecast", Kind: "insufficient_history"})

	if v := testutil.ToFloat64(sink.decisions.WithLabelValues("HIGH")); v != 2 {
		t.Errorf("decisions = %v, want 2", v)
	}
	if v := testutil.ToFloat64(sink.failures.WithLabelValues("forecast", "insufficient_history")); v != 1 {
		t.Errorf("failures = %v, want 1", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = first.RecordDecision(coremetrics.DecisionEvent{Level: "LOW"})
	if v := testutil.ToFloat64(second.decisions.WithLabelValues("LOW")); v != 1 {
		t.Errorf("collectors not shared: %v", v)
	}
}
