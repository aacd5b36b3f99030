package risk

import (
	"fmt"
	"math"

	"github.com/kilianp07/evload/core/model"
)

const (
	DefaultMediumRatio = 0.7
	DefaultHighRatio   = 1.0
)

// Recommended actions per decision level.
const (
	ActionNormal   = "Normal operation"
	ActionMonitor  = "Monitor load and prepare mitigation"
	ActionMitigate = "Shift charging to off-peak hours or redistribute load to nearby stations"
)

// DecisionRules maps a demand/capacity ratio to an operating decision. This
// rule set is independent from InfraThresholds.
type DecisionRules struct {
	MediumRatio float64 `json:"medium_ratio"`
	HighRatio   float64 `json:"high_ratio"`
}

// DefaultDecisionRules returns the 0.7/1.0 rule set.
func DefaultDecisionRules() DecisionRules {
	return DecisionRules{MediumRatio: DefaultMediumRatio, HighRatio: DefaultHighRatio}
}

// SetDefaults fills unset ratios.
func (r *DecisionRules) SetDefaults() {
	if r.MediumRatio == 0 {
		r.MediumRatio = DefaultMediumRatio
	}
	if r.HighRatio == 0 {
		r.HighRatio = DefaultHighRatio
	}
}

// Validate ensures the ratios are ordered.
func (r DecisionRules) Validate() error {
	if r.MediumRatio <= 0 || r.HighRatio <= 0 {
		return fmt.Errorf("decision ratios must be positive")
	}
	if r.MediumRatio >= r.HighRatio {
		return fmt.Errorf("medium_ratio (%.2f) must be below high_ratio (%.2f)", r.MediumRatio, r.HighRatio)
	}
	return nil
}

// Decision is the recommended action for one demand value.
type Decision struct {
	PredictedDemand  float64             `json:"predicted_demand"`
	CapacityKW       float64             `json:"capacity_kw"`
	UtilizationRatio float64             `json:"utilization_ratio"`
	RiskLevel        model.DecisionLevel `json:"risk_level"`
	Action           string              `json:"recommended_action"`
}

// Decide classifies demand/capacity. Thresholds are applied to the exact
// ratio; demand and ratio are rounded to two decimals in the result.
func (r DecisionRules) Decide(demand, capacityKW float64) (Decision, error) {
	if err := checkFinite(demand, capacityKW); err != nil {
		return Decision{}, err
	}
	if capacityKW == 0 {
		return Decision{}, ErrDivisionByZero
	}
	ratio := demand / capacityKW
	d := Decision{
		PredictedDemand:  Round2(demand),
		CapacityKW:       capacityKW,
		UtilizationRatio: Round2(ratio),
	}
	switch {
	case ratio < r.MediumRatio:
		d.RiskLevel, d.Action = model.DecisionLow, ActionNormal
	case ratio < r.HighRatio:
		d.RiskLevel, d.Action = model.DecisionMedium, ActionMonitor
	default:
		d.RiskLevel, d.Action = model.DecisionHigh, ActionMitigate
	}
	return d, nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
