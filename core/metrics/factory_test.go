package metrics_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evload/core/factory"
	metrics "github.com/kilianp07/evload/core/metrics"
)

// countingSink counts forecasts and fleet snapshots; label comes from conf.
type countingSink struct {
	label     string
	forecasts int
	fleets    int
}

func (c *countingSink) RecordForecast(metrics.ForecastEvent) error {
	c.forecasts++
	return nil
}

func (c *countingSink) RecordFleetSnapshot(metrics.FleetSnapshotEvent) error {
	c.fleets++
	return nil
}

var built []*countingSink

func init() {
	_ = metrics.RegisterMetricsSink("counting", func(conf map[string]any) (metrics.MetricsSink, error) {
		var c struct {
			Label string `json:"label"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s := &countingSink{label: c.Label}
		built = append(built, s)
		return s, nil
	})
}

func TestNewMetricsSinkDefaults(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	found := false
	for _, n := range metrics.SinkTypes() {
		found = found || n == "nop"
	}
	if !found {
		t.Fatalf("nop not registered: %v", metrics.SinkTypes())
	}
}

func TestNewMetricsSinkFromYAML(t *testing.T) {
	built = nil
	data := `sinks:
  - type: counting
    conf:
      label: primary
  - type: counting
    conf:
      label: shadow
  - type: nop
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok || len(m.Sinks) != 3 {
		t.Fatalf("expected MultiSink of 3, got %T", s)
	}
	if err := m.RecordForecast(metrics.ForecastEvent{StationID: "S1", Peak: 42}); err != nil {
		t.Fatalf("record forecast: %v", err)
	}
	if err := m.RecordFleetSnapshot(metrics.FleetSnapshotEvent{}); err != nil {
		t.Fatalf("record fleet: %v", err)
	}
	if len(built) != 2 || built[0].label != "primary" || built[1].label != "shadow" {
		t.Fatalf("unexpected sinks %+v", built)
	}
	for _, b := range built {
		if b.forecasts != 1 || b.fleets != 1 {
			t.Fatalf("sink %s got %d forecasts %d fleets", b.label, b.forecasts, b.fleets)
		}
	}
}
