package forecast

import (
	"fmt"
	"math"
)

// Config bounds the forecasts a Pipeline accepts.
type Config struct {
	DefaultHorizon int     `json:"default_horizon"`
	MaxHorizon     int     `json:"max_horizon"`
	DefaultGrowth  float64 `json:"default_growth"`
	MaxGrowth      float64 `json:"max_growth"`
	// LongHorizon flags reports whose horizon exceeds it.
	LongHorizon int  `json:"long_horizon"`
	RefreshLags bool `json:"refresh_lags"`
	// StationIndicator sets the station's own one-hot column to 1 instead
	// of leaving every station column at 0.
	StationIndicator bool `json:"station_indicator"`
}

// SetDefaults applies the dashboard limits: 24h by default, up to 72h, and
// growth between 0 and 50%.
func (c *Config) SetDefaults() {
	if c.DefaultHorizon == 0 {
		c.DefaultHorizon = 24
	}
	if c.MaxHorizon == 0 {
		c.MaxHorizon = 72
	}
	if c.MaxGrowth == 0 {
		c.MaxGrowth = 50
	}
	if c.LongHorizon == 0 {
		c.LongHorizon = 48
	}
}

// Validate checks the limits are consistent.
func (c Config) Validate() error {
	if c.DefaultHorizon < 1 || c.DefaultHorizon > c.MaxHorizon {
		return fmt.Errorf("default_horizon %d outside [1, %d]", c.DefaultHorizon, c.MaxHorizon)
	}
	if c.DefaultGrowth < 0 || c.DefaultGrowth > c.MaxGrowth {
		return fmt.Errorf("default_growth %.2f outside [0, %.2f]", c.DefaultGrowth, c.MaxGrowth)
	}
	return nil
}

// CheckHorizon validates a requested horizon against the limits.
func (c Config) CheckHorizon(h int) error {
	if h < 1 || (c.MaxHorizon > 0 && h > c.MaxHorizon) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidHorizon, h, c.MaxHorizon)
	}
	return nil
}

// CheckGrowth validates a requested growth percentage against the limits.
func (c Config) CheckGrowth(g float64) error {
	if math.IsNaN(g) || math.IsInf(g, 0) || g < 0 || (c.MaxGrowth > 0 && g > c.MaxGrowth) {
		return fmt.Errorf("%w: %.2f not in [0, %.2f]", ErrInvalidGrowth, g, c.MaxGrowth)
	}
	return nil
}
