// Package runlog persists a summary of every forecast and fleet run so past
// runs can be listed by station and time range.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
)

// Kind tells which operation produced a record.
type Kind string

const (
	KindForecast Kind = "forecast"
	KindFleet    Kind = "fleet"
)

// Record captures one run.
type Record struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Kind           Kind      `json:"kind"`
	StationID      string    `json:"station_id,omitempty"`
	Horizon        int       `json:"horizon"`
	GrowthPct      float64   `json:"growth_pct"`
	Peak           float64   `json:"peak"`
	Average        float64   `json:"average,omitempty"`
	DemandRisk     string    `json:"demand_risk,omitempty"`
	InfraRisk      string    `json:"infra_risk,omitempty"`
	UtilizationPct float64   `json:"utilization_pct,omitempty"`
	Stations       int       `json:"stations,omitempty"`
	Failures       int       `json:"failures,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start     time.Time
	End       time.Time
	StationID string
	Kind      Kind
}

// Match reports whether r passes the filters. Start and End are inclusive.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.StationID != "" && r.StationID != q.StationID {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// FromReport summarises a station report.
func FromReport(r *forecast.Report) Record {
	rec := Record{
		ID:         uuid.NewString(),
		Timestamp:  r.GeneratedAt,
		Kind:       KindForecast,
		StationID:  r.StationID,
		Horizon:    r.Horizon,
		GrowthPct:  r.GrowthPct,
		Peak:       r.Peak,
		Average:    r.Average,
		DemandRisk: r.DemandRisk.String(),
	}
	if r.Infrastructure != nil {
		rec.InfraRisk = r.Infrastructure.Risk.String()
		rec.UtilizationPct = r.Infrastructure.Percent
	}
	return rec
}

// FromSnapshot summarises a fleet snapshot. Peak is the highest station
// peak.
func FromSnapshot(s *fleet.Snapshot) Record {
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: s.GeneratedAt,
		Kind:      KindFleet,
		Horizon:   fleet.Horizon,
		Stations:  len(s.Records) + len(s.Failures),
		Failures:  len(s.Failures),
	}
	for _, r := range s.Records {
		if r.PeakForecast > rec.Peak {
			rec.Peak = r.PeakForecast
		}
	}
	return rec
}

// Nop discards records.
type Nop struct{}

func (Nop) Append(context.Context, Record) error           { return nil }
func (Nop) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                   { return nil }
