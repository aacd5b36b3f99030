// Package forecast rolls a single-step predictor forward over a horizon,
// derives the residual confidence band and assembles station reports.
package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
)

// Step is one recursive prediction.
type Step struct {
	HourOffset int     `json:"hour_offset"`
	Value      float64 `json:"predicted_value"`
}

// Options tunes the recursion.
type Options struct {
	// RefreshLags also advances lag_24, rolling_mean_3 and the calendar
	// features from the forecast trail. When false only lag_1 and hour move
	// and the other features keep their last observed values.
	RefreshLags bool `json:"refresh_lags"`
}

// Recursive forecasts horizon steps from row with the default options.
// It returns the steps and the final state of the working row.
func Recursive(ctx context.Context, row model.FeatureVector, p prediction.Predictor, horizon int, growthPct float64) ([]Step, model.FeatureVector, error) {
	return Options{}.Recursive(ctx, row, p, horizon, growthPct)
}

// Recursive runs the forecast loop: predict, scale by (1+growthPct/100),
// feed the scaled value back as lag_1 and advance hour modulo 24. Growth
// therefore compounds through lag_1. row itself is never modified.
func (o Options) Recursive(ctx context.Context, row model.FeatureVector, p prediction.Predictor, horizon int, growthPct float64) ([]Step, model.FeatureVector, error) {
	if horizon < 1 {
		return nil, model.FeatureVector{}, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	if math.IsNaN(growthPct) || math.IsInf(growthPct, 0) || growthPct < 0 {
		return nil, model.FeatureVector{}, fmt.Errorf("%w: %.2f", ErrInvalidGrowth, growthPct)
	}
	for _, f := range []string{model.FeatureLag1, model.FeatureHour} {
		if !row.Has(f) {
			return nil, model.FeatureVector{}, fmt.Errorf("%w: row has no %s", prediction.ErrSchemaMismatch, f)
		}
	}

	cur := row.Clone()
	factor := 1 + growthPct/100
	var tr *trail
	if o.RefreshLags {
		tr = newTrail(cur)
	}

	steps := make([]Step, 0, horizon)
	for i := 1; i <= horizon; i++ {
		if err := ctx.Err(); err != nil {
			return nil, model.FeatureVector{}, err
		}
		raw, err := p.Predict(ctx, cur)
		if err != nil {
			return nil, model.FeatureVector{}, fmt.Errorf("step %d: %w", i, err)
		}
		adjusted := raw * factor
		steps = append(steps, Step{HourOffset: i, Value: adjusted})

		hour, _ := cur.Get(model.FeatureHour)
		cur.Set(model.FeatureLag1, adjusted)
		cur.Set(model.FeatureHour, float64((int(hour)+1)%24))
		if tr != nil {
			tr.advance(cur, adjusted, int(hour) == 23)
		}
	}
	return steps, cur, nil
}

// trail is the lag_1 history seen by the recursion. It starts with the
// row's rolling_mean_3 twice as stand-ins for older values, then the row's
// lag_1, then every adjusted prediction.
type trail struct {
	values []float64
}

func newTrail(row model.FeatureVector) *trail {
	lag1, _ := row.Get(model.FeatureLag1)
	mean3, ok := row.Get(model.FeatureRollingMean3)
	if !ok {
		mean3 = lag1
	}
	return &trail{values: []float64{mean3, mean3, lag1}}
}

// advance records v and refreshes the derived features of row. lag_24 only
// moves once the trail reaches 24 real values back.
func (t *trail) advance(row model.FeatureVector, v float64, dayRollover bool) {
	t.values = append(t.values, v)
	n := len(t.values)
	row.Set(model.FeatureRollingMean3, (t.values[n-3]+t.values[n-2]+t.values[n-1])/3)
	if n-25 >= 2 {
		row.Set(model.FeatureLag24, t.values[n-25])
	}
	if dayRollover {
		dow, _ := row.Get(model.FeatureDayOfWeek)
		next := (int(dow) + 1) % 7
		row.Set(model.FeatureDayOfWeek, float64(next))
		weekend := 0.0
		if next >= 5 {
			weekend = 1
		}
		row.Set(model.FeatureIsWeekend, weekend)
	}
}
