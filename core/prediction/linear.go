package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evload/core/model"
)

// Linear is a linear regression artifact exported by the training pipeline.
type Linear struct {
	Schema       []string           `json:"schema" yaml:"schema"`
	Intercept    float64            `json:"intercept" yaml:"intercept"`
	Coefficients map[string]float64 `json:"coefficients" yaml:"coefficients"`
	Importances  map[string]float64 `json:"importances,omitempty" yaml:"importances,omitempty"`
}

// LoadLinear reads a JSON or YAML artifact and validates it.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var l Linear
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &l)
	case ".json":
		err = json.Unmarshal(data, &l)
	default:
		return nil, fmt.Errorf("unsupported model artifact format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that every coefficient refers to a schema column.
func (l *Linear) Validate() error {
	if len(l.Schema) == 0 {
		return fmt.Errorf("%w: empty schema", ErrSchemaMismatch)
	}
	known := make(map[string]struct{}, len(l.Schema))
	for _, n := range l.Schema {
		if _, dup := known[n]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrSchemaMismatch, n)
		}
		known[n] = struct{}{}
	}
	for n := range l.Coefficients {
		if _, ok := known[n]; !ok {
			return fmt.Errorf("%w: coefficient for unknown feature %q", ErrSchemaMismatch, n)
		}
	}
	return nil
}

// Predict computes intercept + sum(coef * feature), summed in schema order
// so repeated calls return bit-identical results.
func (l *Linear) Predict(_ context.Context, v model.FeatureVector) (float64, error) {
	if err := CheckSchema(l.Schema, v); err != nil {
		return 0, err
	}
	y := l.Intercept
	for _, n := range l.Schema {
		c, ok := l.Coefficients[n]
		if !ok {
			continue
		}
		x, _ := v.Get(n)
		y += c * x
	}
	return y, nil
}

// FeatureSchema returns a copy of the artifact schema.
func (l *Linear) FeatureSchema() []string {
	cp := make([]string, len(l.Schema))
	copy(cp, l.Schema)
	return cp
}

// FeatureImportances returns the artifact importances when present.
func (l *Linear) FeatureImportances() (map[string]float64, bool) {
	if len(l.Importances) == 0 {
		return nil, false
	}
	cp := make(map[string]float64, len(l.Importances))
	for k, v := range l.Importances {
		cp[k] = v
	}
	return cp, true
}
