// Package analytics computes descriptive statistics of a station series:
// stability, hourly and weekday profiles, daily totals and the demand
// distribution.
package analytics

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evload/core/model"
)

// ErrEmptySeries is returned when a series has no observations.
var ErrEmptySeries = errors.New("series has no observations")

// Stability classes derived from the stability score.
const (
	Stable   = "stable"
	Moderate = "moderate"
	Volatile = "volatile"
)

// Variability classes derived from std/mean.
const (
	VariabilityLow      = "low"
	VariabilityModerate = "moderate"
	VariabilityHigh     = "high"
)

// Overview summarises a station series.
type Overview struct {
	StationID      string        `json:"station_id"`
	Records        int           `json:"records"`
	Mean           float64       `json:"mean"`
	Peak           float64       `json:"peak"`
	Volatility     float64       `json:"volatility"`
	StabilityScore float64       `json:"stability_score"`
	Stability      string        `json:"stability"`
	Variability    string        `json:"variability"`
	PeakHour       int           `json:"peak_hour"`
	Hourly         []HourlyPoint `json:"hourly"`
}

// NewOverview computes the station overview. Volatility is the sample
// standard deviation. A zero mean yields a stability score of 0.
func NewOverview(series model.Series) (*Overview, error) {
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}
	e := series.Energies()
	ov := &Overview{
		StationID: series.StationID,
		Records:   len(e),
		Mean:      stat.Mean(e, nil),
		Peak:      floats.Max(e),
	}
	if len(e) > 1 {
		ov.Volatility = stat.StdDev(e, nil)
	}
	var cv float64
	if ov.Mean != 0 {
		cv = ov.Volatility / ov.Mean
		ov.StabilityScore = 100 - cv*100
	}
	ov.Stability = stabilityClass(ov.StabilityScore)
	ov.Variability = variabilityClass(ov.Volatility, ov.Mean)

	ov.Hourly = HourlyProfile(series)
	ov.PeakHour = PeakHour(ov.Hourly)
	return ov, nil
}

func stabilityClass(score float64) string {
	switch {
	case score > 80:
		return Stable
	case score > 60:
		return Moderate
	default:
		return Volatile
	}
}

func variabilityClass(std, mean float64) string {
	switch {
	case std < mean*0.2:
		return VariabilityLow
	case std < mean*0.4:
		return VariabilityModerate
	default:
		return VariabilityHigh
	}
}

// HourlyPoint is the mean energy at one hour of day.
type HourlyPoint struct {
	Hour int     `json:"hour"`
	Mean float64 `json:"mean"`
}

// HourlyProfile averages energy per hour of day. Hours without data are
// omitted.
func HourlyProfile(series model.Series) []HourlyPoint {
	var sum [24]float64
	var n [24]int
	for _, o := range series.Observations {
		if o.Hour < 0 || o.Hour > 23 {
			continue
		}
		sum[o.Hour] += o.EnergyKWh
		n[o.Hour]++
	}
	out := make([]HourlyPoint, 0, 24)
	for h := range sum {
		if n[h] > 0 {
			out = append(out, HourlyPoint{Hour: h, Mean: sum[h] / float64(n[h])})
		}
	}
	return out
}

// PeakHour returns the hour with the highest mean, the earliest on ties,
// or -1 for an empty profile.
func PeakHour(profile []HourlyPoint) int {
	best := -1
	top := math.Inf(-1)
	for _, p := range profile {
		if p.Mean > top {
			best, top = p.Hour, p.Mean
		}
	}
	return best
}

// DailyTotal is the energy summed over one calendar day.
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// DailyTotals sums energy per date in ascending date order.
func DailyTotals(series model.Series) []DailyTotal {
	sums := make(map[string]float64)
	for _, o := range series.Observations {
		sums[o.Date.Format(model.DateLayout)] += o.EnergyKWh
	}
	out := make([]DailyTotal, 0, len(sums))
	for d, v := range sums {
		out = append(out, DailyTotal{Date: d, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// WeekdayMean is the mean energy of one weekday.
type WeekdayMean struct {
	Day  string  `json:"day"`
	Mean float64 `json:"mean"`
}

// WeekdayProfile averages energy per weekday, Monday first. Weekdays
// without data are omitted.
func WeekdayProfile(series model.Series) []WeekdayMean {
	var sum [7]float64
	var n [7]int
	for _, o := range series.Observations {
		d := (int(o.Date.Weekday()) + 6) % 7
		sum[d] += o.EnergyKWh
		n[d]++
	}
	out := make([]WeekdayMean, 0, 7)
	for d := range sum {
		if n[d] == 0 {
			continue
		}
		out = append(out, WeekdayMean{Day: time.Weekday((d + 1) % 7).String(), Mean: sum[d] / float64(n[d])})
	}
	return out
}

// Bin is one histogram bucket covering [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Distribution buckets energy values into equal-width bins spanning
// [min, max]. The maximum value falls in the last bin.
func Distribution(series model.Series, bins int) ([]Bin, error) {
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if bins < 1 {
		bins = 30
	}
	x := series.Energies()
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	edge := dividers[bins]
	dividers[bins] = math.Nextafter(edge, math.Inf(1))
	counts := stat.Histogram(nil, dividers, x, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Low: dividers[i], High: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].High = edge
	return out, nil
}
