package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ResidualStd returns the population standard deviation of
// actuals[i]-predictions[i] over the whole in-sample history.
func ResidualStd(actuals, predictions []float64) (float64, error) {
	if len(actuals) == 0 {
		return 0, ErrEmptyHistory
	}
	if len(actuals) != len(predictions) {
		return 0, fmt.Errorf("%w: %d actuals, %d predictions", ErrLengthMismatch, len(actuals), len(predictions))
	}
	res := make([]float64, len(actuals))
	for i := range actuals {
		res[i] = actuals[i] - predictions[i]
	}
	_, std := stat.PopMeanStdDev(res, nil)
	return std, nil
}

// Band returns a constant-width band of ±residual std around values. The
// width does not grow with the horizon.
func Band(values, actuals, predictions []float64) (upper, lower []float64, residualStd float64, err error) {
	residualStd, err = ResidualStd(actuals, predictions)
	if err != nil {
		return nil, nil, 0, err
	}
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i, v := range values {
		upper[i] = v + residualStd
		lower[i] = v - residualStd
	}
	return upper, lower, residualStd, nil
}
