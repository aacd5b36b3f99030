package model

import "fmt"

// StationMetadata describes a charging station. It is supplied externally
// and never modified by the engine.
type StationMetadata struct {
	StationID  string  `json:"station_id" db:"station_id"`
	CapacityKW float64 `json:"capacity_kw" db:"capacity_kw"`
	Area       string  `json:"area" db:"area"`
	Zone       string  `json:"zone" db:"zone"`
	Latitude   float64 `json:"latitude" db:"latitude"`
	Longitude  float64 `json:"longitude" db:"longitude"`
}

// Validate checks that the metadata is usable for utilization computations.
func (m StationMetadata) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("station id is required")
	}
	if m.CapacityKW <= 0 {
		return fmt.Errorf("station %s: capacity must be positive", m.StationID)
	}
	return nil
}
