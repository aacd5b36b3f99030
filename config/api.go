package config

import "fmt"

// APIConfig configures the HTTP API server.
type APIConfig struct {
	// Address to listen on. Empty disables the server.
	Address string `json:"address"`
	// BearerToken, when set, is required on every /api request.
	BearerToken        string `json:"bearer_token"`
	ReadTimeoutSeconds int    `json:"read_timeout_seconds"`
	// RequestTimeoutSeconds bounds forecast and fleet computations.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

func (c *APIConfig) SetDefaults() {
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 30
	}
}

func (c APIConfig) Validate() error {
	if c.BearerToken != "" && c.Address == "" {
		return fmt.Errorf("bearer_token set without address")
	}
	return nil
}
