package risk

import "github.com/kilianp07/evload/core/model"

// Demand classifies a forecast peak against the historical distribution.
// Reaching the historical peak takes precedence over the mean+std check and
// both comparisons are inclusive.
func Demand(peak, mean, std, historicalPeak float64) model.DemandRisk {
	switch {
	case peak >= historicalPeak:
		return model.DemandHigh
	case peak >= mean+std:
		return model.DemandModerate
	default:
		return model.DemandLow
	}
}
