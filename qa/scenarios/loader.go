// Package scenarios runs fleet risk scenarios described in YAML files
// through the aggregator, the metrics collector and the risk publisher.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evload/core/model"
)

// StationDef describes one station. A zero capacity leaves the station
// without metadata.
type StationDef struct {
	ID         string  `yaml:"id"`
	CapacityKW float64 `yaml:"capacity_kw"`
	Zone       string  `yaml:"zone,omitempty"`
	Hours      int     `yaml:"hours"`
	EnergyKWh  float64 `yaml:"energy_kwh"`
}

// Observations expands the definition into an hourly series starting
// 2025-01-01 with a flat energy value.
func (s StationDef) Observations() []model.Observation {
	hours := s.Hours
	if hours == 0 {
		hours = 48
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Observation, hours)
	for i := range out {
		out[i] = model.Observation{
			StationID: s.ID,
			Date:      start.AddDate(0, 0, i/24),
			Hour:      i % 24,
			EnergyKWh: s.EnergyKWh,
		}
	}
	return out
}

// Metadata returns the station metadata and whether the station has any.
func (s StationDef) Metadata() (model.StationMetadata, bool) {
	if s.CapacityKW == 0 {
		return model.StationMetadata{}, false
	}
	return model.StationMetadata{StationID: s.ID, CapacityKW: s.CapacityKW, Zone: s.Zone}, true
}

type Expected struct {
	Risks    map[string]string `yaml:"risks"`
	Failures []string          `yaml:"failures,omitempty"`
	Alerts   int               `yaml:"alerts"`
	// Error, when set, must be contained in the aggregation error.
	Error string `yaml:"error,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Policy      string       `yaml:"policy,omitempty"`
	PredictedKW float64      `yaml:"predicted_kw"`
	Stations    []StationDef `yaml:"stations"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}
