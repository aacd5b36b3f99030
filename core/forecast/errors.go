package forecast

import "errors"

var (
	// ErrInvalidHorizon is returned for a horizon below 1 or above the
	// configured maximum.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrInvalidGrowth is returned for a negative growth percentage or one
	// above the configured maximum.
	ErrInvalidGrowth = errors.New("invalid growth percentage")
	// ErrEmptyHistory is returned when no historical actuals are available.
	ErrEmptyHistory = errors.New("empty history")
	// ErrLengthMismatch is returned when actuals and in-sample predictions
	// differ in length.
	ErrLengthMismatch = errors.New("actuals and predictions length mismatch")
)
