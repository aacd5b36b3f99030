package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evload/core/factory"
	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/infra/mqtt"
)

type Config struct {
	Data     DataConfig           `json:"data"`
	Model    factory.ModuleConfig `json:"model"`
	Forecast forecast.Config      `json:"forecast"`
	Risk     RiskConfig           `json:"risk"`
	Fleet    fleet.Config         `json:"fleet"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	API      APIConfig            `json:"api"`
	Logging  LoggingConfig        `json:"logging"`
	Sentry   SentryConfig         `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies K_ environment
// overrides (K_FORECAST__MAX_HORIZON=48), then defaults and validation.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills unset values in every section.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	if c.Model.Type == "" {
		c.Model.Type = "echo"
	}
	c.Forecast.SetDefaults()
	c.Risk.SetDefaults()
	c.Fleet.SetDefaults()
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section and joins the errors.
func (c Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("data", c.Data.Validate())
	check("forecast", c.Forecast.Validate())
	check("risk", c.Risk.Validate())
	check("fleet", c.Fleet.Validate())
	check("mqtt", c.MQTT.Validate())
	check("api", c.API.Validate())
	check("logging", c.Logging.Validate())
	return errors.Join(errs...)
}
