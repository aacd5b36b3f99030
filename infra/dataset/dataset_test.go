package dataset

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func TestReadObservations(t *testing.T) {
	in := "date,hour,station_id,energy_kwh\n" +
		"2025-01-01,1,Station_1,12.5\n" +
		"2025-01-01,0,Station_1,10\n"
	obs, err := ReadObservations(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "Station_1", obs[0].StationID)
	assert.Equal(t, 1, obs[0].Hour)
	assert.Equal(t, 12.5, obs[0].EnergyKWh)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
}

func TestReadObservationsColumnOrder(t *testing.T) {
	in := "station_id,energy_kwh,extra,date,hour\nA,3.25,x,2025-02-03,23\n"
	obs, err := ReadObservations(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 23, obs[0].Hour)
	assert.Equal(t, 3.25, obs[0].EnergyKWh)
}

func TestReadObservationsErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "date,hour,energy_kwh\n2025-01-01,1,2\n",
		"bad date":       "date,hour,station_id,energy_kwh\n01/01/2025,1,A,2\n",
		"bad hour":       "date,hour,station_id,energy_kwh\n2025-01-01,24,A,2\n",
		"bad energy":     "date,hour,station_id,energy_kwh\n2025-01-01,1,A,abc\n",
		"empty":          "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadObservations(strings.NewReader(in))
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	metas := []model.StationMetadata{
		{StationID: "A", CapacityKW: 100, Area: "Downtown", Zone: "north", Latitude: 48.85, Longitude: 2.35},
		{StationID: "B", CapacityKW: 40.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMetadata(&buf, metas))
	got, err := ReadMetadata(&buf)
	require.NoError(t, err)
	assert.Equal(t, metas, got)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	obsPath := filepath.Join(dir, "obs.csv")
	metaPath := filepath.Join(dir, "meta.csv")
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := []model.Observation{
		{StationID: "A", Date: day, Hour: 2, EnergyKWh: 3},
		{StationID: "A", Date: day, Hour: 1, EnergyKWh: 2},
		{StationID: "B", Date: day, Hour: 0, EnergyKWh: 7.25},
	}
	metas := []model.StationMetadata{{StationID: "A", CapacityKW: 50}}
	require.NoError(t, Save(obsPath, metaPath, obs, metas))

	s, err := Load(obsPath, metaPath)
	require.NoError(t, err)
	ctx := context.Background()
	ids, err := s.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)

	series, err := s.Series(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, series.Energies())

	m, err := s.Metadata(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 50.0, m.CapacityKW)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.Error(t, err)
}
