package model

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar date layout used by observation records.
const DateLayout = "2006-01-02"

// Observation is the energy drawn at a station during one hour of one day.
type Observation struct {
	StationID string    `json:"station_id"`
	Date      time.Time `json:"date"`
	Hour      int       `json:"hour"` // 0-23
	EnergyKWh float64   `json:"energy_kwh"`
}

// Timestamp combines the calendar date and the hour of day.
func (o Observation) Timestamp() time.Time {
	d := o.Date
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Add(time.Duration(o.Hour) * time.Hour)
}

// Series is the ordered history of a single station.
type Series struct {
	StationID    string
	Observations []Observation
}

// NewSeries copies obs and sorts them by timestamp ascending.
func NewSeries(stationID string, obs []Observation) Series {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	SortObservations(cp)
	return Series{StationID: stationID, Observations: cp}
}

// SortObservations orders observations by (date, hour) ascending in place.
func SortObservations(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp().Before(obs[j].Timestamp())
	})
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// Energies returns the energy values in series order.
func (s Series) Energies() []float64 {
	res := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		res[i] = o.EnergyKWh
	}
	return res
}
