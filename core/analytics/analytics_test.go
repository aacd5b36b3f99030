package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func obs(day, hour int, e float64) model.Observation {
	return model.Observation{
		StationID: "S1",
		Date:      time.Date(2025, 1, 6+day, 0, 0, 0, 0, time.UTC), // Monday 6 Jan 2025
		Hour:      hour,
		EnergyKWh: e,
	}
}

func TestOverview(t *testing.T) {
	s := model.NewSeries("S1", []model.Observation{
		obs(0, 8, 10), obs(0, 9, 30), obs(1, 8, 20), obs(1, 9, 40),
	})
	ov, err := NewOverview(s)
	require.NoError(t, err)

	assert.Equal(t, 4, ov.Records)
	assert.Equal(t, 25.0, ov.Mean)
	assert.Equal(t, 40.0, ov.Peak)
	assert.InDelta(t, 12.909944, ov.Volatility, 1e-6)
	assert.InDelta(t, 100-12.909944/25*100, ov.StabilityScore, 1e-4)
	assert.Equal(t, Volatile, ov.Stability)
	assert.Equal(t, VariabilityHigh, ov.Variability)
	assert.Equal(t, 9, ov.PeakHour)
	assert.Equal(t, []HourlyPoint{{8, 15}, {9, 35}}, ov.Hourly)

	_, err = NewOverview(model.Series{StationID: "S1"})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestClasses(t *testing.T) {
	assert.Equal(t, Stable, stabilityClass(80.1))
	assert.Equal(t, Moderate, stabilityClass(80))
	assert.Equal(t, Volatile, stabilityClass(60))

	assert.Equal(t, VariabilityLow, variabilityClass(1, 10))
	assert.Equal(t, VariabilityModerate, variabilityClass(2, 10))
	assert.Equal(t, VariabilityHigh, variabilityClass(4, 10))
}

func TestDailyAndWeekday(t *testing.T) {
	s := model.NewSeries("S1", []model.Observation{
		obs(1, 0, 1), obs(0, 0, 2), obs(0, 1, 3), obs(6, 0, 8),
	})
	assert.Equal(t, []DailyTotal{
		{Date: "2025-01-06", Total: 5},
		{Date: "2025-01-07", Total: 1},
		{Date: "2025-01-12", Total: 8},
	}, DailyTotals(s))

	assert.Equal(t, []WeekdayMean{
		{Day: "Monday", Mean: 2.5},
		{Day: "Tuesday", Mean: 1},
		{Day: "Sunday", Mean: 8},
	}, WeekdayProfile(s))
}

func TestDistribution(t *testing.T) {
	var o []model.Observation
	for i := 0; i <= 10; i++ {
		o = append(o, obs(0, i, float64(i)))
	}
	bins, err := Distribution(model.NewSeries("S1", o), 5)
	require.NoError(t, err)
	require.Len(t, bins, 5)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 11, total)
	assert.Equal(t, 0.0, bins[0].Low)
	assert.Equal(t, 10.0, bins[4].High)
	assert.Equal(t, 3, bins[4].Count) // 8, 9 and the max 10

	bins, err = Distribution(model.NewSeries("S1", []model.Observation{obs(0, 0, 4), obs(0, 1, 4)}), 0)
	require.NoError(t, err)
	assert.Len(t, bins, 30)
	assert.Equal(t, 2, bins[0].Count)
}

func TestPeakHourEmpty(t *testing.T) {
	assert.Equal(t, -1, PeakHour(nil))
}
