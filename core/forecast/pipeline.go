package forecast

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evload/core/features"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
)

// Pipeline is the per-station unit shared by the single station report and
// the fleet aggregator: feature building followed by the recursive forecast.
// It is safe for concurrent use as long as the predictor is.
type Pipeline struct {
	predictor prediction.Predictor
	cfg       Config
	infra     risk.InfraThresholds
	clock     clockwork.Clock
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithInfraThresholds sets the thresholds used for report utilization.
func WithInfraThresholds(t risk.InfraThresholds) Option {
	return func(p *Pipeline) { p.infra = t }
}

// WithClock sets the clock stamping reports.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// NewPipeline builds a pipeline around p. Zero config fields take defaults.
func NewPipeline(p prediction.Predictor, cfg Config, opts ...Option) *Pipeline {
	cfg.SetDefaults()
	pl := &Pipeline{
		predictor: p,
		cfg:       cfg,
		infra:     risk.DefaultInfraThresholds(),
		clock:     clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(pl)
	}
	return pl
}

// Config returns the effective limits.
func (p *Pipeline) Config() Config { return p.cfg }

// Predictor returns the underlying predictor.
func (p *Pipeline) Predictor() prediction.Predictor { return p.predictor }

// Result is a raw station forecast.
type Result struct {
	StationID  string
	Frame      *features.Frame
	Steps      []Step
	FinalRow   model.FeatureVector
	Values     []float64
	Peak       float64
	PeakOffset int
	Average    float64
}

// Forecast builds the feature frame of series and runs the recursive
// forecast from its most recent row.
func (p *Pipeline) Forecast(ctx context.Context, series model.Series, horizon int, growthPct float64) (*Result, error) {
	if err := p.cfg.CheckHorizon(horizon); err != nil {
		return nil, err
	}
	if err := p.cfg.CheckGrowth(growthPct); err != nil {
		return nil, err
	}
	frame, err := features.Build(series, p.predictor.FeatureSchema(),
		features.WithStationIndicator(p.cfg.StationIndicator))
	if err != nil {
		return nil, err
	}
	opts := Options{RefreshLags: p.cfg.RefreshLags}
	steps, last, err := opts.Recursive(ctx, frame.Last(), p.predictor, horizon, growthPct)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", series.StationID, err)
	}
	values := make([]float64, len(steps))
	for i, s := range steps {
		values[i] = s.Value
	}
	idx := floats.MaxIdx(values)
	return &Result{
		StationID:  series.StationID,
		Frame:      frame,
		Steps:      steps,
		FinalRow:   last,
		Values:     values,
		Peak:       values[idx],
		PeakOffset: steps[idx].HourOffset,
		Average:    stat.Mean(values, nil),
	}, nil
}
