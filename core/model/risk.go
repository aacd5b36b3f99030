package model

import "fmt"

// DemandRisk classifies a forecast peak against the station's own history.
type DemandRisk int

const (
	DemandLow DemandRisk = iota
	DemandModerate
	DemandHigh
)

// String returns the upper-case label of the level.
func (r DemandRisk) String() string {
	switch r {
	case DemandLow:
		return "LOW"
	case DemandModerate:
		return "MODERATE"
	case DemandHigh:
		return "HIGH"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level as its label.
func (r DemandRisk) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText parses a label produced by MarshalText.
func (r *DemandRisk) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LOW":
		*r = DemandLow
	case "MODERATE":
		*r = DemandModerate
	case "HIGH":
		*r = DemandHigh
	default:
		return fmt.Errorf("unknown demand risk %q", string(b))
	}
	return nil
}

// InfraRisk classifies a forecast peak against the rated capacity.
type InfraRisk int

const (
	InfraStable InfraRisk = iota
	InfraNearCapacity
	InfraOverload
)

func (r InfraRisk) String() string {
	switch r {
	case InfraStable:
		return "STABLE"
	case InfraNearCapacity:
		return "NEAR_CAPACITY"
	case InfraOverload:
		return "OVERLOAD"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level as its label.
func (r InfraRisk) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText parses a label produced by MarshalText.
func (r *InfraRisk) UnmarshalText(b []byte) error {
	switch string(b) {
	case "STABLE":
		*r = InfraStable
	case "NEAR_CAPACITY":
		*r = InfraNearCapacity
	case "OVERLOAD":
		*r = InfraOverload
	default:
		return fmt.Errorf("unknown infrastructure risk %q", string(b))
	}
	return nil
}

// DecisionLevel is the risk level produced by the single-value decision rules.
type DecisionLevel int

const (
	DecisionLow DecisionLevel = iota
	DecisionMedium
	DecisionHigh
)

func (l DecisionLevel) String() string {
	switch l {
	case DecisionLow:
		return "LOW"
	case DecisionMedium:
		return "MEDIUM"
	case DecisionHigh:
		return "HIGH"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level as its label.
func (l DecisionLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *DecisionLevel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LOW":
		*l = DecisionLow
	case "MEDIUM":
		*l = DecisionMedium
	case "HIGH":
		*l = DecisionHigh
	default:
		return fmt.Errorf("unknown decision level %q", string(b))
	}
	return nil
}
