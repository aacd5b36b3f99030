// Package events defines the forecasting events emitted on the event bus.
//
// Available event types:
//   - ForecastEvent: a station report was produced
//   - FleetEvent: a fleet snapshot was produced
//   - DecisionEvent: a demand/capacity decision was taken
//   - FailureEvent: an operation failed for a station
package events
