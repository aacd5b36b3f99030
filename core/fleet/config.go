package fleet

import "fmt"

// Policy decides what a failing station does to the whole aggregation.
type Policy string

const (
	// PolicySkip reports the failing station and keeps going.
	PolicySkip Policy = "skip"
	// PolicyAbort returns the first failure in station order.
	PolicyAbort Policy = "abort"
)

// Config defines fleet aggregation settings.
type Config struct {
	Policy                 Policy `json:"policy"`
	Workers                int    `json:"workers"`
	RefreshIntervalSeconds int    `json:"refresh_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicySkip
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RefreshIntervalSeconds == 0 {
		c.RefreshIntervalSeconds = 900
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Policy != PolicySkip && c.Policy != PolicyAbort {
		return fmt.Errorf("unknown fleet policy %q", c.Policy)
	}
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative")
	}
	return nil
}
