package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) // Wednesday

// hourlySeries returns n consecutive hourly observations with energy = i.
func hourlySeries(id string, n int) model.Series {
	obs := make([]model.Observation, n)
	for i := range obs {
		ts := start.Add(time.Duration(i) * time.Hour)
		obs[i] = model.Observation{
			StationID: id,
			Date:      time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Hour:      ts.Hour(),
			EnergyKWh: float64(i),
		}
	}
	return model.Series{StationID: id, Observations: obs}
}

func fullSchema(stations ...string) []string {
	s := append([]string(nil), prediction.BaseSchema...)
	for _, id := range stations {
		s = append(s, StationColumn(id))
	}
	return s
}

func TestBuildDropsFirst24Rows(t *testing.T) {
	for _, n := range []int{25, 26, 48, 100} {
		f, err := Build(hourlySeries("S1", n), fullSchema("S1"))
		require.NoError(t, err)
		assert.Equal(t, n-LagWindow, f.Len(), "length %d", n)
		assert.Len(t, f.Actuals, n-LagWindow)
		assert.Len(t, f.Timestamps, n-LagWindow)
	}
}

func TestBuildDerivedValues(t *testing.T) {
	f, err := Build(hourlySeries("S1", 30), fullSchema("S1"))
	require.NoError(t, err)

	first := f.Rows[0].Map()
	assert.Equal(t, 0.0, first[model.FeatureHour]) // 2025-01-02 00:00
	assert.Equal(t, 23.0, first[model.FeatureLag1])
	assert.Equal(t, 0.0, first[model.FeatureLag24])
	assert.InDelta(t, 23.0, first[model.FeatureRollingMean3], 1e-12) // (22+23+24)/3
	assert.Equal(t, 3.0, first[model.FeatureDayOfWeek])              // Thursday
	assert.Equal(t, 0.0, first[model.FeatureIsWeekend])
	assert.Equal(t, 0.0, first[StationColumn("S1")])
	assert.Equal(t, 24.0, f.Actuals[0])

	last := f.Last().Map()
	assert.Equal(t, 28.0, last[model.FeatureLag1])
	assert.Equal(t, 5.0, last[model.FeatureLag24])
	assert.Equal(t, 5.0, last[model.FeatureHour])
}

func TestBuildWeekend(t *testing.T) {
	// 2025-01-04 is a Saturday: hours 72..95 from the start.
	f, err := Build(hourlySeries("S1", 100), fullSchema("S1"))
	require.NoError(t, err)
	row := f.Rows[72-LagWindow].Map()
	assert.Equal(t, 5.0, row[model.FeatureDayOfWeek])
	assert.Equal(t, 1.0, row[model.FeatureIsWeekend])
}

func TestBuildAlignsToSchema(t *testing.T) {
	schema := []string{StationColumn("S2"), model.FeatureLag1, StationColumn("S1"), "unused"}
	f, err := Build(hourlySeries("S1", 26), schema)
	require.NoError(t, err)
	for _, r := range f.Rows {
		assert.Equal(t, schema, r.Names())
		m := r.Map()
		assert.Equal(t, 0.0, m[StationColumn("S2")])
		assert.Equal(t, 0.0, m[StationColumn("S1")])
		assert.Equal(t, 0.0, m["unused"])
		_, hasHour := m[model.FeatureHour]
		assert.False(t, hasHour, "columns outside the schema are discarded")
	}
}

func TestBuildLeavesStationColumnsZero(t *testing.T) {
	schema := fullSchema("S1", "S2", "S3")
	f, err := Build(hourlySeries("S2", 26), schema)
	require.NoError(t, err)
	for _, r := range f.Rows {
		m := r.Map()
		for _, id := range []string{"S1", "S2", "S3"} {
			assert.Equal(t, 0.0, m[StationColumn(id)], id)
		}
	}
}

func TestBuildWithStationIndicator(t *testing.T) {
	schema := fullSchema("S1", "S2", "S3")
	f, err := Build(hourlySeries("S2", 26), schema, WithStationIndicator(true))
	require.NoError(t, err)
	m := f.Last().Map()
	assert.Equal(t, 0.0, m[StationColumn("S1")])
	assert.Equal(t, 1.0, m[StationColumn("S2")])
	assert.Equal(t, 0.0, m[StationColumn("S3")])

	f, err = Build(hourlySeries("S2", 26), schema, WithStationIndicator(false))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.Last().Map()[StationColumn("S2")])
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(hourlySeries("S1", 24), fullSchema("S1"))
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = Build(hourlySeries("S1", 30), nil)
	assert.ErrorIs(t, err, prediction.ErrSchemaMismatch)

	_, err = Build(hourlySeries("S1", 30), []string{"hour", "hour"})
	assert.ErrorIs(t, err, prediction.ErrSchemaMismatch)
}
