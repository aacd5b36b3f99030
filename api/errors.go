package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/evload/core/features"
	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/store"
)

// errBadParam marks malformed query parameters.
var errBadParam = errors.New("invalid parameter")

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, forecast.ErrInvalidGrowth),
		errors.Is(err, risk.ErrNonFinite):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnknownStation),
		errors.Is(err, store.ErrMissingMetadata):
		return http.StatusNotFound
	case errors.Is(err, features.ErrInsufficientHistory),
		errors.Is(err, prediction.ErrSchemaMismatch),
		errors.Is(err, forecast.ErrEmptyHistory),
		errors.Is(err, forecast.ErrLengthMismatch),
		errors.Is(err, risk.ErrDivisionByZero):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorBody{Error: err.Error()})
}
