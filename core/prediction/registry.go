package prediction

import "github.com/kilianp07/evload/core/factory"

var registry = factory.NewRegistry[Predictor]()

// Register adds a predictor factory identified by name.
func Register(name string, f factory.Factory[Predictor]) error {
	return registry.Register(name, f)
}

// New builds the predictor described by cfg.
func New(cfg factory.ModuleConfig) (Predictor, error) {
	return registry.Create(cfg)
}

// Types lists the registered predictor types.
func Types() []string { return registry.Names() }

func init() {
	_ = Register("constant", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Value  float64  `json:"value"`
			Schema []string `json:"schema"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Constant{Value: c.Value, Schema: c.Schema}, nil
	})
	_ = Register("echo", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Schema []string `json:"schema"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Echo{Schema: c.Schema}, nil
	})
	_ = Register("linear", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return LoadLinear(c.Path)
	})
}
