// Package store defines where observations and station metadata come from.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/evload/core/model"
)

var (
	// ErrMissingMetadata is returned when a station has no metadata record.
	ErrMissingMetadata = errors.New("missing station metadata")
	// ErrUnknownStation is returned when a station has no observations.
	ErrUnknownStation = errors.New("unknown station")
)

// MissingMetadataError carries the station whose metadata lookup failed.
type MissingMetadataError struct {
	StationID string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("station %s: %v", e.StationID, ErrMissingMetadata)
}

// Unwrap allows errors.Is(err, ErrMissingMetadata).
func (e *MissingMetadataError) Unwrap() error { return ErrMissingMetadata }

// ObservationSource provides per-station time series.
type ObservationSource interface {
	// Stations returns the known station ids in ascending order.
	Stations(ctx context.Context) ([]string, error)
	// Series returns the time-sorted observations of one station.
	Series(ctx context.Context, stationID string) (model.Series, error)
}

// MetadataSource provides station metadata.
type MetadataSource interface {
	Metadata(ctx context.Context, stationID string) (model.StationMetadata, error)
}

// Source is implemented by stores serving both observations and metadata.
type Source interface {
	ObservationSource
	MetadataSource
}
