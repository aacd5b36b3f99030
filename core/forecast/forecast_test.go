package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evload/core/features"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
)

func baseRow(lag1, hour float64) model.FeatureVector {
	row := model.NewFeatureVector(prediction.BaseSchema)
	row.Set(model.FeatureLag1, lag1)
	row.Set(model.FeatureHour, hour)
	row.Set(model.FeatureLag24, 4)
	row.Set(model.FeatureRollingMean3, 5)
	row.Set(model.FeatureDayOfWeek, 6)
	row.Set(model.FeatureIsWeekend, 1)
	return row
}

func series(id string, n int, energy func(i int) float64) model.Series {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	obs := make([]model.Observation, n)
	for i := range obs {
		ts := start.Add(time.Duration(i) * time.Hour)
		obs[i] = model.Observation{
			StationID: id,
			Date:      ts.Truncate(24 * time.Hour),
			Hour:      ts.Hour(),
			EnergyKWh: energy(i),
		}
	}
	return model.Series{StationID: id, Observations: obs}
}

func TestRecursiveConstant(t *testing.T) {
	steps, last, err := Recursive(context.Background(), baseRow(1, 0), prediction.Constant{Value: 7}, 24, 0)
	require.NoError(t, err)
	require.Len(t, steps, 24)
	for i, s := range steps {
		assert.Equal(t, i+1, s.HourOffset)
		assert.Equal(t, 7.0, s.Value)
	}
	lag, _ := last.Get(model.FeatureLag1)
	assert.Equal(t, 7.0, lag)
}

func TestRecursiveGrowthCompoundsThroughLag(t *testing.T) {
	const k, g = 12.0, 10.0
	steps, last, err := Recursive(context.Background(), baseRow(k, 5), prediction.Echo{}, 6, g)
	require.NoError(t, err)

	want := k
	for n, s := range steps {
		want *= 1 + g/100
		assert.Equal(t, want, s.Value, "step %d", n+1)
		assert.InEpsilon(t, k*math.Pow(1+g/100, float64(n+1)), s.Value, 1e-12)
	}
	lag, _ := last.Get(model.FeatureLag1)
	assert.Equal(t, steps[len(steps)-1].Value, lag)
}

func TestRecursiveConstantWithGrowth(t *testing.T) {
	steps, _, err := Recursive(context.Background(), baseRow(1, 0), prediction.Constant{Value: 10}, 3, 20)
	require.NoError(t, err)
	for _, s := range steps {
		assert.InDelta(t, 12.0, s.Value, 1e-12)
	}
}

func TestRecursiveHourWraps(t *testing.T) {
	hourOf := prediction.Func{Fn: func(v model.FeatureVector) float64 {
		h, _ := v.Get(model.FeatureHour)
		return h
	}}
	steps, last, err := Recursive(context.Background(), baseRow(0, 22), hourOf, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []Step{{1, 22}, {2, 23}, {3, 0}}, steps)
	h, _ := last.Get(model.FeatureHour)
	assert.Equal(t, 1.0, h)
}

func TestRecursiveFreezesOtherFeatures(t *testing.T) {
	row := baseRow(3, 20)
	var seen []model.FeatureVector
	spy := prediction.Func{Fn: func(v model.FeatureVector) float64 {
		seen = append(seen, v.Clone())
		return 9
	}}
	_, _, err := Recursive(context.Background(), row, spy, 10, 0)
	require.NoError(t, err)
	for _, v := range seen {
		for _, f := range []string{model.FeatureLag24, model.FeatureRollingMean3, model.FeatureDayOfWeek, model.FeatureIsWeekend} {
			got, _ := v.Get(f)
			want, _ := row.Get(f)
			assert.Equal(t, want, got, f)
		}
	}
	lag, _ := row.Get(model.FeatureLag1)
	assert.Equal(t, 3.0, lag, "input row must not be modified")
}

func TestRecursiveRefreshLags(t *testing.T) {
	row := baseRow(3, 23) // Sunday 23:00
	var seen []model.FeatureVector
	spy := prediction.Func{Fn: func(v model.FeatureVector) float64 {
		seen = append(seen, v.Clone())
		return 9
	}}
	_, _, err := Options{RefreshLags: true}.Recursive(context.Background(), row, spy, 30, 0)
	require.NoError(t, err)

	second := seen[1].Map()
	assert.Equal(t, 0.0, second[model.FeatureHour])
	assert.Equal(t, 0.0, second[model.FeatureDayOfWeek], "Sunday rolls over to Monday")
	assert.Equal(t, 0.0, second[model.FeatureIsWeekend])
	assert.InDelta(t, (5+3+9)/3.0, second[model.FeatureRollingMean3], 1e-12)
	assert.Equal(t, 4.0, second[model.FeatureLag24])

	// after 24 forecast steps lag_24 reaches back to the original lag_1.
	assert.Equal(t, 3.0, seen[24].Map()[model.FeatureLag24])
	assert.Equal(t, 9.0, seen[25].Map()[model.FeatureLag24])
}

func TestRecursiveErrors(t *testing.T) {
	ctx := context.Background()
	_, _, err := Recursive(ctx, baseRow(1, 0), prediction.Constant{}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, _, err = Recursive(ctx, baseRow(1, 0), prediction.Constant{}, 1, -1)
	assert.ErrorIs(t, err, ErrInvalidGrowth)

	_, _, err = Recursive(ctx, model.NewFeatureVector([]string{model.FeatureHour}), prediction.Constant{}, 1, 0)
	assert.ErrorIs(t, err, prediction.ErrSchemaMismatch)

	for _, g := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, _, err = Recursive(ctx, baseRow(1, 0), prediction.Constant{Value: 1}, 1, g)
		assert.ErrorIs(t, err, ErrInvalidGrowth, "growth %v", g)
	}

	// growth has no upper bound at this level.
	_, _, err = Recursive(ctx, baseRow(1, 0), prediction.Constant{Value: 1}, 1, 500)
	assert.NoError(t, err)
}

func TestBandSymmetricConstantWidth(t *testing.T) {
	values := []float64{10, 20, 15, 30}
	actuals := []float64{1, 3, 5, 7}
	preds := []float64{2, 2, 6, 6}
	upper, lower, std, err := Band(values, actuals, preds)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, std, 1e-12)
	for i, v := range values {
		assert.Equal(t, upper[i]-v, v-lower[i])
		assert.Equal(t, std, upper[i]-v)
	}
}

func TestResidualStdIsPopulation(t *testing.T) {
	actuals := []float64{3, 8, 1, 12, 6}
	preds := []float64{0, 0, 0, 0, 0}
	std, err := ResidualStd(actuals, preds)
	require.NoError(t, err)
	assert.InDelta(t, stat.PopStdDev(actuals, nil), std, 1e-12)
	assert.Greater(t, stat.StdDev(actuals, nil), std)
}

func TestBandErrors(t *testing.T) {
	_, _, _, err := Band([]float64{1}, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyHistory)
	_, _, _, err = Band([]float64{1}, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestPipelineForecast(t *testing.T) {
	p := NewPipeline(prediction.Constant{Value: 5}, Config{})
	s := series("S1", 30, func(i int) float64 { return float64(i) })

	res, err := p.Forecast(context.Background(), s, 24, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Frame.Len())
	assert.Len(t, res.Values, 24)
	assert.Equal(t, 5.0, res.Peak)
	assert.Equal(t, 1, res.PeakOffset)
	assert.Equal(t, 5.0, res.Average)

	_, err = p.Forecast(context.Background(), s, 73, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
	_, err = p.Forecast(context.Background(), s, 24, 51)
	assert.ErrorIs(t, err, ErrInvalidGrowth)
	_, err = p.Forecast(context.Background(), series("S1", 10, func(int) float64 { return 1 }), 24, 0)
	assert.ErrorIs(t, err, features.ErrInsufficientHistory)
}

func TestPipelineRejectsNonFiniteGrowth(t *testing.T) {
	p := NewPipeline(prediction.Constant{Value: 5}, Config{})
	s := series("S1", 30, func(i int) float64 { return float64(i) })
	for _, g := range []float64{math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, p.Config().CheckGrowth(g), ErrInvalidGrowth)
		res, err := p.Forecast(context.Background(), s, 3, g)
		assert.ErrorIs(t, err, ErrInvalidGrowth)
		assert.Nil(t, res)
	}
}

func TestPipelineStationIndicator(t *testing.T) {
	col := features.StationColumn("S1")
	schema := append(append([]string(nil), prediction.BaseSchema...), col)
	weighted := prediction.Func{
		Schema: schema,
		Fn: func(v model.FeatureVector) float64 {
			x, _ := v.Get(col)
			return 10 + 5*x
		},
	}
	s := series("S1", 30, func(i int) float64 { return float64(i) })

	res, err := NewPipeline(weighted, Config{}).Forecast(context.Background(), s, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10}, res.Values)

	res, err = NewPipeline(weighted, Config{StationIndicator: true}).Forecast(context.Background(), s, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 15}, res.Values)
}

func TestPipelinePeakOffset(t *testing.T) {
	// predicts the next hour value of a curve peaking at 18h.
	curve := prediction.Func{Fn: func(v model.FeatureVector) float64 {
		h, _ := v.Get(model.FeatureHour)
		return 20 - math.Abs(h-18)
	}}
	p := NewPipeline(curve, Config{})
	s := series("S1", 48, func(i int) float64 { return 1 }) // last row at 23h

	res, err := p.Forecast(context.Background(), s, 24, 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Peak)
	assert.Equal(t, 20, res.PeakOffset) // 23h, 0h, ... 18h is the 20th step
}

func TestPipelineReport(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	p := NewPipeline(prediction.Constant{Value: 30}, Config{}, WithClock(clk))
	s := series("S1", 50, func(i int) float64 { return float64(i % 24) })
	meta := &model.StationMetadata{StationID: "S1", CapacityKW: 100}

	rep, err := p.Report(context.Background(), s, meta, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, clk.Now(), rep.GeneratedAt)
	require.Len(t, rep.Points, 50)
	assert.Equal(t, 30.0, rep.Peak)
	assert.Equal(t, 1, rep.PeakHourOffset)
	assert.Equal(t, 23.0, rep.History.Peak)
	assert.Equal(t, model.DemandHigh, rep.DemandRisk)
	assert.Equal(t, InsightElevated, rep.Insight)
	assert.Empty(t, rep.GrowthNote)
	assert.True(t, rep.LongHorizon)
	require.NotNil(t, rep.Infrastructure)
	assert.Equal(t, model.InfraStable, rep.Infrastructure.Risk)
	assert.InDelta(t, 30.0, rep.Infrastructure.Percent, 1e-12)

	for _, pt := range rep.Points {
		assert.InDelta(t, rep.ResidualStd, pt.Upper-pt.Value, 1e-9)
		assert.InDelta(t, rep.ResidualStd, pt.Value-pt.Lower, 1e-9)
	}
}

func TestPipelineReportNotes(t *testing.T) {
	p := NewPipeline(prediction.Constant{Value: 1}, Config{})
	s := series("S1", 40, func(i int) float64 { return float64(10 + i%3) })

	rep, err := p.Report(context.Background(), s, nil, 12, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, rep.Peak, 1e-12)
	assert.Equal(t, InsightTypical, rep.Insight)
	assert.Equal(t, model.DemandLow, rep.DemandRisk)
	assert.Equal(t, "Forecast adjusted assuming 10% higher EV usage.", rep.GrowthNote)
	assert.False(t, rep.LongHorizon)
	assert.Nil(t, rep.Infrastructure)

	_, err = p.Report(context.Background(), s, &model.StationMetadata{StationID: "S1"}, 12, 0)
	assert.ErrorIs(t, err, risk.ErrDivisionByZero)
}

func TestSummarize(t *testing.T) {
	h, err := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	assert.Equal(t, 5.0, h.Mean)
	assert.InDelta(t, math.Sqrt(32.0/7), h.Std, 1e-12)
	assert.Equal(t, 9.0, h.Peak)

	h, err = Summarize([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, History{Mean: 3, Peak: 3}, h)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrEmptyHistory)
}
