// Package factory provides a generic registry used to build pluggable modules
// (predictors, metrics sinks) from configuration. A module is described by a
// type name and a raw settings map that the registered factory decodes.
//
//	reg := factory.NewRegistry[prediction.Predictor]()
//	_ = reg.Register("constant", func(conf map[string]any) (prediction.Predictor, error) {
//	    var c struct{ Value float64 `json:"value"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return prediction.Constant{Value: c.Value}, nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "constant", Conf: map[string]any{"value": 3}})
package factory
