package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/evload/core/model"
)

// ErrDivisionByZero is returned when a station capacity of zero is used as
// a divisor.
var ErrDivisionByZero = errors.New("division by zero capacity")

// ErrNonFinite is returned for NaN or infinite demand and capacity values.
var ErrNonFinite = errors.New("non-finite value")

func checkFinite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrNonFinite, v)
		}
	}
	return nil
}

// Default infrastructure thresholds in percent of rated capacity.
const (
	DefaultNearCapacityPct = 70.0
	DefaultOverloadPct     = 90.0
)

// InfraThresholds holds the utilization boundaries used to classify a peak
// against station capacity. Both boundaries are inclusive lower bounds.
type InfraThresholds struct {
	NearCapacityPct float64 `json:"near_capacity_pct"`
	OverloadPct     float64 `json:"overload_pct"`
}

// DefaultInfraThresholds returns the 70/90 rule set.
func DefaultInfraThresholds() InfraThresholds {
	return InfraThresholds{NearCapacityPct: DefaultNearCapacityPct, OverloadPct: DefaultOverloadPct}
}

// SetDefaults fills unset thresholds.
func (t *InfraThresholds) SetDefaults() {
	if t.NearCapacityPct == 0 {
		t.NearCapacityPct = DefaultNearCapacityPct
	}
	if t.OverloadPct == 0 {
		t.OverloadPct = DefaultOverloadPct
	}
}

// Validate ensures the thresholds are ordered.
func (t InfraThresholds) Validate() error {
	if t.NearCapacityPct <= 0 || t.OverloadPct <= 0 {
		return fmt.Errorf("infra thresholds must be positive")
	}
	if t.NearCapacityPct >= t.OverloadPct {
		return fmt.Errorf("near_capacity_pct (%.2f) must be below overload_pct (%.2f)", t.NearCapacityPct, t.OverloadPct)
	}
	return nil
}

// Utilization is the outcome of an infrastructure classification.
type Utilization struct {
	Peak       float64         `json:"peak_kw"`
	CapacityKW float64         `json:"capacity_kw"`
	Percent    float64         `json:"utilization_pct"`
	Risk       model.InfraRisk `json:"risk"`
}

// Classify computes peak/capacity*100 and maps it to an infrastructure risk.
// Percent is left unrounded; presentation layers round it.
func (t InfraThresholds) Classify(peak, capacityKW float64) (Utilization, error) {
	if err := checkFinite(peak, capacityKW); err != nil {
		return Utilization{}, err
	}
	if capacityKW == 0 {
		return Utilization{}, ErrDivisionByZero
	}
	pct := peak / capacityKW * 100
	u := Utilization{Peak: peak, CapacityKW: capacityKW, Percent: pct}
	switch {
	case pct < t.NearCapacityPct:
		u.Risk = model.InfraStable
	case pct < t.OverloadPct:
		u.Risk = model.InfraNearCapacity
	default:
		u.Risk = model.InfraOverload
	}
	return u, nil
}
