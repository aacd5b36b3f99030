package simulator

import (
	"fmt"
	"time"
)

// Config holds parameters for the synthetic dataset.
type Config struct {
	Days     int       `json:"days"`
	Stations int       `json:"stations"`
	Start    time.Time `json:"start"`
	// Profile scales the energy of each hour. A zero profile leaves the
	// values unscaled.
	Profile [24]float64 `json:"profile"`
}

// SetDefaults applies the 180 days x 5 stations layout starting 2025-01-01.
func (c *Config) SetDefaults() {
	if c.Days == 0 {
		c.Days = 180
	}
	if c.Stations == 0 {
		c.Stations = 5
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Validate checks the bounds.
func (c Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", c.Days)
	}
	if c.Stations <= 0 {
		return fmt.Errorf("stations must be positive, got %d", c.Stations)
	}
	for h, w := range c.Profile {
		if w < 0 {
			return fmt.Errorf("profile hour %d is negative", h)
		}
	}
	return nil
}
