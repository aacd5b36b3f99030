// Package mqtt defines how fleet risk is distributed to external
// subscribers such as grid operators or station controllers.
package mqtt

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
)

// ErrPublish is returned when a message could not be delivered after all
// retries.
var ErrPublish = errors.New("mqtt publish failed")

// RiskMessage is the payload published for every station of a snapshot.
type RiskMessage struct {
	StationID      string          `json:"station_id"`
	Zone           string          `json:"zone,omitempty"`
	PeakForecast   float64         `json:"peak_forecast"`
	CapacityKW     float64         `json:"capacity_kw"`
	UtilizationPct float64         `json:"utilization_pct"`
	Risk           model.InfraRisk `json:"risk"`
	Timestamp      int64           `json:"timestamp"`
}

// Alert is published for stations at overload risk.
type Alert struct {
	AlertID string `json:"alert_id"`
	RiskMessage
}

// NewRiskMessage converts a fleet record.
func NewRiskMessage(r fleet.Record, at time.Time) RiskMessage {
	return RiskMessage{
		StationID:      r.StationID,
		Zone:           r.Zone,
		PeakForecast:   r.PeakForecast,
		CapacityKW:     r.CapacityKW,
		UtilizationPct: r.UtilizationPct,
		Risk:           r.Risk,
		Timestamp:      at.UnixMilli(),
	}
}

// RiskPublisher distributes fleet snapshots.
type RiskPublisher interface {
	// PublishSnapshot publishes one message per station and an alert for
	// each overloaded one. It returns the number of alerts sent.
	PublishSnapshot(ctx context.Context, snap *fleet.Snapshot) (alerts int, err error)
}

// NopPublisher drops everything.
type NopPublisher struct{}

func (NopPublisher) PublishSnapshot(context.Context, *fleet.Snapshot) (int, error) { return 0, nil }
