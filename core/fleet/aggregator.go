// Package fleet builds the cross-station infrastructure risk snapshot.
package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/monitoring"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/store"
)

const (
	// Horizon is the fixed fleet forecast horizon in hours.
	Horizon = 24
	// GrowthPct is the fixed fleet growth scenario.
	GrowthPct = 0.0
)

// Record is the risk summary of one station.
type Record struct {
	StationID      string          `json:"station_id"`
	Area           string          `json:"area"`
	Zone           string          `json:"zone"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	PeakForecast   float64         `json:"peak_forecast"`
	CapacityKW     float64         `json:"capacity_kw"`
	UtilizationPct float64         `json:"utilization_pct"`
	Risk           model.InfraRisk `json:"risk"`
}

// Failure is a station that could not be aggregated.
type Failure struct {
	StationID string `json:"station_id"`
	Err       error  `json:"-"`
	Message   string `json:"error"`
}

// Snapshot is the result of one aggregation. Records and Failures follow the
// input station order.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Record  `json:"records"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Counts returns the number of records per risk level.
func (s *Snapshot) Counts() map[model.InfraRisk]int {
	out := make(map[model.InfraRisk]int, 3)
	for _, r := range s.Records {
		out[r.Risk]++
	}
	return out
}

// Aggregator forecasts every station through the shared pipeline and
// classifies its 24h peak against rated capacity.
type Aggregator struct {
	pipeline *forecast.Pipeline
	infra    risk.InfraThresholds
	cfg      Config
	log      logger.Logger
	clock    clockwork.Clock
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithClock sets the clock stamping snapshots.
func WithClock(c clockwork.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// NewAggregator creates an aggregator. Zero config fields take defaults.
func NewAggregator(p *forecast.Pipeline, infra risk.InfraThresholds, cfg Config, opts ...Option) *Aggregator {
	cfg.SetDefaults()
	infra.SetDefaults()
	a := &Aggregator{
		pipeline: p,
		infra:    infra,
		cfg:      cfg,
		log:      logger.Nop{},
		clock:    clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type outcome struct {
	rec Record
	err error
}

// Aggregate evaluates stations concurrently with at most cfg.Workers
// goroutines. Under PolicySkip failing stations land in Snapshot.Failures;
// under PolicyAbort the first failure in station order is returned.
func (a *Aggregator) Aggregate(ctx context.Context, stations []string, series store.ObservationSource, metadata store.MetadataSource) (*Snapshot, error) {
	results := make([]outcome, len(stations))
	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, id := range stations {
		i, id := i, id
		g.Go(func() error {
			rec, err := a.station(ctx, id, series, metadata)
			results[i] = outcome{rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{GeneratedAt: a.clock.Now().UTC(), Records: make([]Record, 0, len(stations))}
	for i, res := range results {
		if res.err == nil {
			snap.Records = append(snap.Records, res.rec)
			continue
		}
		if a.cfg.Policy == PolicyAbort {
			return nil, res.err
		}
		a.log.Warnf("fleet: skipping station %s: %v", stations[i], res.err)
		monitoring.CaptureException(res.err, monitoring.StationTags(stations[i], "fleet"))
		snap.Failures = append(snap.Failures, Failure{StationID: stations[i], Err: res.err, Message: res.err.Error()})
	}
	a.log.Infow("fleet snapshot", map[string]any{
		"stations": len(stations),
		"records":  len(snap.Records),
		"failures": len(snap.Failures),
	})
	return snap, nil
}

// Snapshot aggregates every station known to src.
func (a *Aggregator) Snapshot(ctx context.Context, src store.Source) (*Snapshot, error) {
	ids, err := src.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return a.Aggregate(ctx, ids, src, src)
}

func (a *Aggregator) station(ctx context.Context, id string, series store.ObservationSource, metadata store.MetadataSource) (Record, error) {
	meta, err := metadata.Metadata(ctx, id)
	if err != nil {
		return Record{}, err
	}
	s, err := series.Series(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("station %s: %w", id, err)
	}
	res, err := a.pipeline.Forecast(ctx, s, Horizon, GrowthPct)
	if err != nil {
		return Record{}, fmt.Errorf("station %s: %w", id, err)
	}
	u, err := a.infra.Classify(res.Peak, meta.CapacityKW)
	if err != nil {
		return Record{}, fmt.Errorf("station %s: %w", id, err)
	}
	return Record{
		StationID:      id,
		Area:           meta.Area,
		Zone:           meta.Zone,
		Latitude:       meta.Latitude,
		Longitude:      meta.Longitude,
		PeakForecast:   risk.Round2(res.Peak),
		CapacityKW:     meta.CapacityKW,
		UtilizationPct: risk.Round2(u.Percent),
		Risk:           u.Risk,
	}, nil
}
