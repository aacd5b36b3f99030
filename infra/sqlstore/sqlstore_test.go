package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "evload.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// compile-time checks
var (
	_ store.Source = (*Store)(nil)
	_ runlog.Store = (*Store)(nil)
)

func TestObservationsAndMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddObservations(ctx,
		model.Observation{StationID: "B", Date: day, Hour: 0, EnergyKWh: 1},
		model.Observation{StationID: "A", Date: day.AddDate(0, 0, 1), Hour: 0, EnergyKWh: 3},
		model.Observation{StationID: "A", Date: day, Hour: 5, EnergyKWh: 2},
	))
	// upsert replaces the value
	require.NoError(t, s.AddObservations(ctx, model.Observation{StationID: "A", Date: day, Hour: 5, EnergyKWh: 2.5}))

	ids, err := s.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)

	series, err := s.Series(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 3}, series.Energies())
	assert.Equal(t, day, series.Observations[0].Date)

	_, err = s.Series(ctx, "Z")
	assert.True(t, errors.Is(err, store.ErrUnknownStation))

	meta := model.StationMetadata{StationID: "A", CapacityKW: 100, Area: "Downtown", Zone: "north", Latitude: 1.5, Longitude: 2.5}
	require.NoError(t, s.PutMetadata(ctx, meta))
	meta.CapacityKW = 120
	require.NoError(t, s.PutMetadata(ctx, meta))
	got, err := s.Metadata(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	_, err = s.Metadata(ctx, "B")
	var missing *store.MissingMetadataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "B", missing.StationID)
	assert.True(t, errors.Is(err, store.ErrMissingMetadata))
}

func TestRunLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	recs := []runlog.Record{
		{ID: "1", Timestamp: base, Kind: runlog.KindForecast, StationID: "A", Peak: 10},
		{ID: "2", Timestamp: base.Add(time.Hour), Kind: runlog.KindForecast, StationID: "B", Peak: 20},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Kind: runlog.KindFleet, Stations: 2},
	}
	for i := len(recs) - 1; i >= 0; i-- {
		require.NoError(t, s.Append(ctx, recs[i]))
	}

	all, err := s.Query(ctx, runlog.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)

	byStation, err := s.Query(ctx, runlog.Query{StationID: "B"})
	require.NoError(t, err)
	require.Len(t, byStation, 1)
	assert.Equal(t, 20.0, byStation[0].Peak)

	ranged, err := s.Query(ctx, runlog.Query{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour), Kind: runlog.KindFleet})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "3", ranged[0].ID)
}

func TestSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	first := &fleet.Snapshot{
		GeneratedAt: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		Records:     []fleet.Record{{StationID: "A", PeakForecast: 95, CapacityKW: 100, UtilizationPct: 95, Risk: model.InfraOverload}},
	}
	second := &fleet.Snapshot{
		GeneratedAt: first.GeneratedAt.Add(15 * time.Minute),
		Records:     []fleet.Record{{StationID: "A", PeakForecast: 60, CapacityKW: 100, UtilizationPct: 60, Risk: model.InfraStable}},
		Failures:    []fleet.Failure{{StationID: "C", Message: "missing station metadata"}},
	}
	_, err = s.SaveSnapshot(ctx, first)
	require.NoError(t, err)
	id, err := s.SaveSnapshot(ctx, second)
	require.NoError(t, err)

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.InfraStable, latest.Records[0].Risk)
	assert.Equal(t, "C", latest.Failures[0].StationID)

	all, err := s.Snapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, id, all[0].ID)
	assert.Equal(t, model.InfraOverload, all[1].Snapshot.Records[0].Risk)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	require.NoError(t, s.PutMetadata(ctx, model.StationMetadata{StationID: "A", CapacityKW: 10}))
	m, err := s.Metadata(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.CapacityKW)
}
