package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/infra/logger"
)

// InfluxSink writes forecasting events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig holds the connection settings of the influx sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordForecast writes one station_forecast point.
func (s *InfluxSink) RecordForecast(ev coremetrics.ForecastEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("station_forecast").
		AddTag("station_id", ev.StationID).
		AddTag("demand_risk", ev.DemandRisk)
	if ev.InfraRisk != "" {
		p = p.AddTag("infra_risk", ev.InfraRisk).
			AddField("utilization_pct", round3(ev.UtilizationPct))
	}
	p = p.AddField("horizon", ev.Horizon).
		AddField("growth_pct", round3(ev.GrowthPct)).
		AddField("average_kw", round3(ev.Average)).
		AddField("peak_kw", round3(ev.Peak)).
		AddField("residual_std", round3(ev.ResidualStd)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFleetSnapshot writes one fleet_station_risk point per station and a
// fleet_snapshot summary point in a single request.
func (s *InfluxSink) RecordFleetSnapshot(ev coremetrics.FleetSnapshotEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev.Stations)+1)
	for _, st := range ev.Stations {
		points = append(points, write.NewPointWithMeasurement("fleet_station_risk").
			AddTag("station_id", st.StationID).
			AddTag("zone", st.Zone).
			AddTag("risk", st.Risk).
			AddField("peak_kw", round3(st.PeakForecast)).
			AddField("utilization_pct", round3(st.UtilizationPct)).
			SetTime(ev.Time))
	}
	points = append(points, write.NewPointWithMeasurement("fleet_snapshot").
		AddField("stations", len(ev.Stations)).
		AddField("failures", ev.Failures).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordDecision writes a decision point.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("decision").
		AddTag("level", ev.Level).
		AddField("demand_kw", round3(ev.Demand)).
		AddField("capacity_kw", round3(ev.CapacityKW)).
		AddField("ratio", round3(ev.Ratio)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFailure writes a failure point.
func (s *InfluxSink) RecordFailure(ev coremetrics.FailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("failure").
		AddTag("operation", ev.Operation).
		AddTag("kind", ev.Kind)
	if ev.StationID != "" {
		p = p.AddTag("station_id", ev.StationID)
	}
	p = p.AddField("count", 1).SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
