// Package simulator produces synthetic hourly charging data with morning
// and evening peaks.
package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evload/core/model"
)

var (
	zones      = []string{"North", "South", "East", "West", "Central"}
	capacities = []float64{60, 80, 100, 120, 150}
)

// StationID returns the identifier of the i-th station, starting at 1.
func StationID(i int) string { return fmt.Sprintf("Station_%d", i) }

// IsPeakHour reports whether hour falls in the 7-10 or 17-21 windows.
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 10) || (hour >= 17 && hour <= 21)
}

// Generate creates cfg.Days x 24 x cfg.Stations observations ordered by day,
// hour and station. Each value is a U(5,15) base plus U(10,25) on peak hours
// or U(0,5) otherwise, rounded to two decimals.
func Generate(cfg Config, rng *rand.Rand) ([]model.Observation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scaled := cfg.Profile != [24]float64{}
	out := make([]model.Observation, 0, cfg.Days*24*cfg.Stations)
	for d := 0; d < cfg.Days; d++ {
		date := cfg.Start.AddDate(0, 0, d)
		for h := 0; h < 24; h++ {
			for s := 1; s <= cfg.Stations; s++ {
				energy := uniform(rng, 5, 15)
				if IsPeakHour(h) {
					energy += uniform(rng, 10, 25)
				} else {
					energy += uniform(rng, 0, 5)
				}
				if scaled {
					energy *= cfg.Profile[h]
				}
				out = append(out, model.Observation{
					StationID: StationID(s),
					Date:      date,
					Hour:      h,
					EnergyKWh: math.Round(energy*100) / 100,
				})
			}
		}
	}
	return out, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Metadata returns default metadata for n stations. Capacities and zones
// cycle through fixed lists; coordinates are spread around a city centre.
func Metadata(n int) []model.StationMetadata {
	out := make([]model.StationMetadata, n)
	for i := range out {
		out[i] = model.StationMetadata{
			StationID:  StationID(i + 1),
			CapacityKW: capacities[i%len(capacities)],
			Area:       fmt.Sprintf("Area %d", i/len(zones)+1),
			Zone:       zones[i%len(zones)],
			Latitude:   48.8566 + 0.01*float64(i%7-3),
			Longitude:  2.3522 + 0.015*float64(i%5-2),
		}
	}
	return out
}

// LoadProfile reads an hourly weight profile from JSON or YAML mapping hour
// numbers to weights. Unknown keys are ignored.
func LoadProfile(data []byte) ([24]float64, error) {
	var m map[string]float64
	var prof [24]float64
	if err := yaml.Unmarshal(data, &m); err != nil {
		return prof, err
	}
	for h, v := range m {
		var hour int
		if _, err := fmt.Sscanf(h, "%d", &hour); err != nil {
			continue
		}
		if hour >= 0 && hour < 24 {
			prof[hour] = v
		}
	}
	return prof, nil
}
