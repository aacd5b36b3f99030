package config

import "github.com/kilianp07/evload/core/risk"

// RiskConfig groups the infrastructure thresholds and decision rules.
type RiskConfig struct {
	Infrastructure risk.InfraThresholds `json:"infrastructure"`
	Decision       risk.DecisionRules   `json:"decision"`
}

func (c *RiskConfig) SetDefaults() {
	c.Infrastructure.SetDefaults()
	c.Decision.SetDefaults()
}

func (c RiskConfig) Validate() error {
	if err := c.Infrastructure.Validate(); err != nil {
		return err
	}
	return c.Decision.Validate()
}
