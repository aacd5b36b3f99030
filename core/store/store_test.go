package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.AddObservations(
		model.Observation{StationID: "B", Date: day, Hour: 1, EnergyKWh: 2},
		model.Observation{StationID: "A", Date: day, Hour: 3, EnergyKWh: 3},
		model.Observation{StationID: "A", Date: day, Hour: 0, EnergyKWh: 1},
	)
	s.PutMetadata(model.StationMetadata{StationID: "A", CapacityKW: 50})

	ids, err := s.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)

	ser, err := s.Series(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, ser.Energies())

	_, err = s.Series(ctx, "Z")
	assert.ErrorIs(t, err, ErrUnknownStation)

	m, err := s.Metadata(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 50.0, m.CapacityKW)

	_, err = s.Metadata(ctx, "B")
	assert.ErrorIs(t, err, ErrMissingMetadata)
	var mm *MissingMetadataError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "B", mm.StationID)
}
