package events

import (
	"time"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/risk"
)

// Event is any value carried on the bus.
type Event interface {
	EventName() string
}

// ForecastEvent is published after a station report is built.
type ForecastEvent struct {
	Report   *forecast.Report
	Duration time.Duration
}

func (ForecastEvent) EventName() string { return "forecast" }

// FleetEvent is published after a fleet snapshot is built.
type FleetEvent struct {
	Snapshot *fleet.Snapshot
	Duration time.Duration
}

func (FleetEvent) EventName() string { return "fleet" }

// DecisionEvent is published after a decision is taken.
type DecisionEvent struct {
	Decision risk.Decision
	Time     time.Time
}

func (DecisionEvent) EventName() string { return "decision" }

// FailureEvent is published when an operation fails. StationID is empty for
// fleet-wide failures.
type FailureEvent struct {
	Operation string
	StationID string
	Err       error
	Time      time.Time
}

func (FailureEvent) EventName() string { return "failure" }
