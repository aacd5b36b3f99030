package prediction

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/evload/core/model"
)

// ErrSchemaMismatch indicates a feature vector cannot satisfy the schema a
// predictor was trained with.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// BaseSchema is the feature set produced for every station, without one-hot
// station columns.
var BaseSchema = []string{
	model.FeatureHour,
	model.FeatureLag1,
	model.FeatureLag24,
	model.FeatureRollingMean3,
	model.FeatureDayOfWeek,
	model.FeatureIsWeekend,
}

// Predictor is a trained single-step model.
type Predictor interface {
	// Predict returns the prediction for one aligned feature vector.
	Predict(ctx context.Context, features model.FeatureVector) (float64, error)
	// FeatureSchema returns the ordered feature names the model expects.
	FeatureSchema() []string
	// FeatureImportances returns per-feature importances when the model
	// exposes them.
	FeatureImportances() (map[string]float64, bool)
}

// Importance is a single feature importance entry.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// TopImportances returns the n most important features in descending order.
// A non-positive n returns all of them. ok is false when the predictor does
// not expose importances.
func TopImportances(p Predictor, n int) (res []Importance, ok bool) {
	imp, ok := p.FeatureImportances()
	if !ok {
		return nil, false
	}
	res = make([]Importance, 0, len(imp))
	for f, v := range imp {
		res = append(res, Importance{Feature: f, Importance: v})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Importance == res[j].Importance {
			return res[i].Feature < res[j].Feature
		}
		return res[i].Importance > res[j].Importance
	})
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res, true
}

// CheckSchema verifies that the vector follows the schema order exactly.
func CheckSchema(schema []string, v model.FeatureVector) error {
	if v.Len() != len(schema) {
		return fmt.Errorf("%w: got %d features, want %d", ErrSchemaMismatch, v.Len(), len(schema))
	}
	names := v.Names()
	for i, n := range schema {
		if names[i] != n {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrSchemaMismatch, i, names[i], n)
		}
	}
	return nil
}

// BatchPredictor is implemented by predictors that can score many rows in
// one call, typically remote ones.
type BatchPredictor interface {
	PredictBatch(ctx context.Context, rows []model.FeatureVector) ([]float64, error)
}

// PredictAll scores every row, using PredictBatch when p supports it.
func PredictAll(ctx context.Context, p Predictor, rows []model.FeatureVector) ([]float64, error) {
	if bp, ok := p.(BatchPredictor); ok {
		out, err := bp.PredictBatch(ctx, rows)
		if err != nil {
			return nil, err
		}
		if len(out) != len(rows) {
			return nil, fmt.Errorf("batch returned %d predictions for %d rows", len(out), len(rows))
		}
		return out, nil
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := p.Predict(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
