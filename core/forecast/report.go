package forecast

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
)

// Insight texts attached to reports.
const (
	InsightElevated = "Projected demand exceeds normal operating levels. Monitoring recommended."
	InsightTypical  = "Projected demand remains within typical operating range."
)

// History summarises the observed energy of the kept feature rows.
type History struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Peak float64 `json:"peak"`
}

// Report is the single station forecast view.
type Report struct {
	StationID      string                `json:"station_id"`
	GeneratedAt    time.Time             `json:"generated_at"`
	Horizon        int                   `json:"horizon"`
	GrowthPct      float64               `json:"growth_pct"`
	Points         []model.ForecastPoint `json:"points"`
	Average        float64               `json:"average"`
	Peak           float64               `json:"peak"`
	PeakHourOffset int                   `json:"peak_hour_offset"`
	History        History               `json:"history"`
	DemandRisk     model.DemandRisk      `json:"demand_risk"`
	ResidualStd    float64               `json:"residual_std"`
	Infrastructure *risk.Utilization     `json:"infrastructure,omitempty"`
	Insight        string                `json:"insight"`
	GrowthNote     string                `json:"growth_note,omitempty"`
	LongHorizon    bool                  `json:"long_horizon"`
}

// Report forecasts series and adds the band, demand risk and, when meta is
// given, infrastructure utilization.
func (p *Pipeline) Report(ctx context.Context, series model.Series, meta *model.StationMetadata, horizon int, growthPct float64) (*Report, error) {
	res, err := p.Forecast(ctx, series, horizon, growthPct)
	if err != nil {
		return nil, err
	}

	hist, err := Summarize(res.Frame.Actuals)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", series.StationID, err)
	}
	inSample, err := prediction.PredictAll(ctx, p.predictor, res.Frame.Rows)
	if err != nil {
		return nil, fmt.Errorf("station %s: in-sample predictions: %w", series.StationID, err)
	}
	upper, lower, residualStd, err := Band(res.Values, res.Frame.Actuals, inSample)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", series.StationID, err)
	}

	points := make([]model.ForecastPoint, len(res.Steps))
	for i, s := range res.Steps {
		points[i] = model.ForecastPoint{HourOffset: s.HourOffset, Value: s.Value, Upper: upper[i], Lower: lower[i]}
	}

	rep := &Report{
		StationID:      series.StationID,
		GeneratedAt:    p.clock.Now().UTC(),
		Horizon:        horizon,
		GrowthPct:      growthPct,
		Points:         points,
		Average:        res.Average,
		Peak:           res.Peak,
		PeakHourOffset: res.PeakOffset,
		History:        hist,
		DemandRisk:     risk.Demand(res.Peak, hist.Mean, hist.Std, hist.Peak),
		ResidualStd:    residualStd,
		Insight:        InsightTypical,
		LongHorizon:    horizon > p.cfg.LongHorizon,
	}
	if res.Peak > hist.Mean {
		rep.Insight = InsightElevated
	}
	if growthPct > 0 {
		rep.GrowthNote = fmt.Sprintf("Forecast adjusted assuming %g%% higher EV usage.", growthPct)
	}
	if meta != nil {
		u, err := p.infra.Classify(res.Peak, meta.CapacityKW)
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", series.StationID, err)
		}
		rep.Infrastructure = &u
	}
	return rep, nil
}

// Summarize computes mean, sample standard deviation and peak. A single
// value has a standard deviation of zero.
func Summarize(actuals []float64) (History, error) {
	if len(actuals) == 0 {
		return History{}, ErrEmptyHistory
	}
	h := History{Peak: floats.Max(actuals)}
	if len(actuals) == 1 {
		h.Mean = actuals[0]
		return h, nil
	}
	h.Mean, h.Std = stat.MeanStdDev(actuals, nil)
	return h, nil
}
