package scenarios

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kilianp07/evload/core/events"
	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/infra/metrics"
	"github.com/kilianp07/evload/infra/mqtt"
	"github.com/kilianp07/evload/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.New[events.Event]()
	done := metrics.StartEventCollector(context.Background(), bus, sink)
	pub := mqtt.NewMockPublisher()

	src := store.NewMemoryStore()
	for _, st := range sc.Stations {
		src.AddObservations(st.Observations()...)
		if meta, ok := st.Metadata(); ok {
			src.PutMetadata(meta)
		}
	}
	p := forecast.NewPipeline(prediction.Constant{Value: sc.PredictedKW}, forecast.Config{})
	agg := fleet.NewAggregator(p, risk.DefaultInfraThresholds(), fleet.Config{Policy: fleet.Policy(sc.Policy)})

	snap, err := agg.Snapshot(context.Background(), src)
	if sc.Expected.Error != "" {
		if err == nil || !strings.Contains(err.Error(), sc.Expected.Error) {
			t.Fatalf("expected error containing %q, got %v", sc.Expected.Error, err)
		}
		bus.Close()
		<-done
		return
	}
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	now := time.Now()
	bus.Publish(events.FleetEvent{Snapshot: snap})
	for _, f := range snap.Failures {
		bus.Publish(events.FailureEvent{Operation: "fleet", StationID: f.StationID, Err: f.Err, Time: now})
	}
	alerts, err := pub.PublishSnapshot(context.Background(), snap)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	bus.Close()
	<-done

	got := map[string]string{}
	for _, r := range snap.Records {
		got[r.StationID] = r.Risk.String()
	}
	for id, want := range sc.Expected.Risks {
		if got[id] != want {
			t.Errorf("station %s: expected %s, got %q", id, want, got[id])
		}
	}
	if len(got) != len(sc.Expected.Risks) {
		t.Errorf("expected %d records, got %d", len(sc.Expected.Risks), len(got))
	}
	var failed []string
	for _, f := range snap.Failures {
		failed = append(failed, f.StationID)
	}
	if strings.Join(failed, ",") != strings.Join(sc.Expected.Failures, ",") {
		t.Errorf("expected failures %v, got %v", sc.Expected.Failures, failed)
	}
	if alerts != sc.Expected.Alerts {
		t.Errorf("expected %d alerts, got %d", sc.Expected.Alerts, alerts)
	}

	counts := map[string]int{}
	for _, risk := range got {
		counts[risk]++
	}
	for _, level := range []string{"STABLE", "NEAR_CAPACITY", "OVERLOAD"} {
		v, ok := gaugeValue(t, reg, "evload_fleet_stations", "risk", level)
		if !ok || int(v) != counts[level] {
			t.Errorf("fleet_stations{risk=%s}: expected %d, got %v (found=%v)", level, counts[level], v, ok)
		}
	}
	if v, _ := gaugeValue(t, reg, "evload_fleet_failed_stations", "", ""); int(v) != len(sc.Expected.Failures) {
		t.Errorf("fleet_failed_stations: expected %d, got %v", len(sc.Expected.Failures), v)
	}
}

// gaugeValue returns the gauge or counter value of the series carrying
// label=value. An empty label matches the first series.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name, label, value string) (float64, bool) {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" || hasLabel(m, label, value) {
				if g := m.GetGauge(); g != nil {
					return g.GetValue(), true
				}
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
