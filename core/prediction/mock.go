package prediction

import (
	"context"
	"fmt"

	"github.com/kilianp07/evload/core/model"
)

func schemaOrBase(s []string) []string {
	if len(s) == 0 {
		s = BaseSchema
	}
	cp := make([]string, len(s))
	copy(cp, s)
	return cp
}

// Constant always predicts Value.
type Constant struct {
	Value  float64
	Schema []string
}

// Predict returns the configured value.
func (c Constant) Predict(context.Context, model.FeatureVector) (float64, error) {
	return c.Value, nil
}

// FeatureSchema returns Schema or BaseSchema when unset.
func (c Constant) FeatureSchema() []string { return schemaOrBase(c.Schema) }

// FeatureImportances is not supported.
func (Constant) FeatureImportances() (map[string]float64, bool) { return nil, false }

// Echo predicts the current lag_1 value unchanged.
type Echo struct {
	Schema []string
}

// Predict returns lag_1.
func (e Echo) Predict(_ context.Context, v model.FeatureVector) (float64, error) {
	lag, ok := v.Get(model.FeatureLag1)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, model.FeatureLag1)
	}
	return lag, nil
}

// FeatureSchema returns Schema or BaseSchema when unset.
func (e Echo) FeatureSchema() []string { return schemaOrBase(e.Schema) }

// FeatureImportances reports lag_1 as the only relevant feature.
func (Echo) FeatureImportances() (map[string]float64, bool) {
	return map[string]float64{model.FeatureLag1: 1}, true
}

// Func adapts a plain function to a Predictor.
type Func struct {
	Fn          func(model.FeatureVector) float64
	Schema      []string
	Importances map[string]float64
}

// Predict calls Fn.
func (f Func) Predict(_ context.Context, v model.FeatureVector) (float64, error) {
	return f.Fn(v), nil
}

// FeatureSchema returns Schema or BaseSchema when unset.
func (f Func) FeatureSchema() []string { return schemaOrBase(f.Schema) }

// FeatureImportances returns Importances when set.
func (f Func) FeatureImportances() (map[string]float64, bool) {
	if f.Importances == nil {
		return nil, false
	}
	return f.Importances, true
}
