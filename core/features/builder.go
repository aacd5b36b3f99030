// Package features turns a raw station series into model-ready feature rows.
package features

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
)

const (
	// LagWindow is the longest lag used by the feature set.
	LagWindow = 24
	// RollingWindow is the number of values averaged by rolling_mean_3.
	RollingWindow = 3
	// MinObservations is the shortest series producing at least one row.
	MinObservations = LagWindow + 1
)

// ErrInsufficientHistory is returned when the series is too short to derive
// every lag for at least one row.
var ErrInsufficientHistory = errors.New("insufficient history")

// Frame holds the aligned feature rows of one station together with the
// observed energy of each kept row.
type Frame struct {
	StationID  string
	Schema     []string
	Rows       []model.FeatureVector
	Actuals    []float64
	Timestamps []time.Time
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Last returns a copy of the most recent row.
func (f *Frame) Last() model.FeatureVector { return f.Rows[len(f.Rows)-1].Clone() }

// StationColumn returns the one-hot column name of a station.
func StationColumn(stationID string) string {
	return model.StationFeaturePrefix + stationID
}

type options struct {
	stationIndicator bool
}

// Option configures Build.
type Option func(*options)

// WithStationIndicator sets the station's own one-hot column to 1. Without
// it every station column is left at 0: a single-station frame encoded with
// the reference category dropped carries no station dummy at all.
func WithStationIndicator(on bool) Option {
	return func(o *options) { o.stationIndicator = on }
}

// Build derives lag, rolling and calendar features for a time-sorted series
// of one station and aligns every row to schema. The first LagWindow rows are
// dropped since lag_24 is undefined for them.
func Build(series model.Series, schema []string, opts ...Option) (*Frame, error) {
	var bo options
	for _, opt := range opts {
		opt(&bo)
	}
	if err := validateSchema(schema); err != nil {
		return nil, err
	}
	n := series.Len()
	if n < MinObservations {
		return nil, fmt.Errorf("%w: station %s has %d observations, need %d",
			ErrInsufficientHistory, series.StationID, n, MinObservations)
	}

	frame := &Frame{
		StationID:  series.StationID,
		Schema:     append([]string(nil), schema...),
		Rows:       make([]model.FeatureVector, 0, n-LagWindow),
		Actuals:    make([]float64, 0, n-LagWindow),
		Timestamps: make([]time.Time, 0, n-LagWindow),
	}
	template := model.NewFeatureVector(schema)
	stationCol := StationColumn(series.StationID)

	var (
		lag24   [LagWindow]float64
		rolling [RollingWindow]float64
		prev    float64
	)
	for i, o := range series.Observations {
		e := o.EnergyKWh
		back24 := lag24[i%LagWindow]
		lag24[i%LagWindow] = e
		rolling[i%RollingWindow] = e
		if i < LagWindow {
			prev = e
			continue
		}

		ts := o.Timestamp()
		dow := weekdayIndex(ts.Weekday())
		weekend := 0.0
		if dow >= 5 {
			weekend = 1
		}

		row := template.Clone()
		row.Set(model.FeatureHour, float64(o.Hour))
		row.Set(model.FeatureLag1, prev)
		row.Set(model.FeatureLag24, back24)
		row.Set(model.FeatureRollingMean3, (rolling[0]+rolling[1]+rolling[2])/RollingWindow)
		row.Set(model.FeatureDayOfWeek, float64(dow))
		row.Set(model.FeatureIsWeekend, weekend)
		if bo.stationIndicator {
			row.Set(stationCol, 1)
		}

		frame.Rows = append(frame.Rows, row)
		frame.Actuals = append(frame.Actuals, e)
		frame.Timestamps = append(frame.Timestamps, ts)
		prev = e
	}
	return frame, nil
}

// weekdayIndex maps time.Weekday to 0=Monday..6=Sunday.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func validateSchema(schema []string) error {
	if len(schema) == 0 {
		return fmt.Errorf("%w: empty schema", prediction.ErrSchemaMismatch)
	}
	seen := make(map[string]struct{}, len(schema))
	for _, n := range schema {
		if _, ok := seen[n]; ok {
			return fmt.Errorf("%w: duplicate feature %q", prediction.ErrSchemaMismatch, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
