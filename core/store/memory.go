package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/evload/core/model"
)

// MemoryStore keeps observations and metadata in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]model.Observation
	meta   map[string]model.StationMetadata
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		series: make(map[string][]model.Observation),
		meta:   make(map[string]model.StationMetadata),
	}
}

// AddObservations appends observations, grouping them by station.
func (s *MemoryStore) AddObservations(obs ...model.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := make(map[string]struct{})
	for _, o := range obs {
		s.series[o.StationID] = append(s.series[o.StationID], o)
		touched[o.StationID] = struct{}{}
	}
	for id := range touched {
		model.SortObservations(s.series[id])
	}
}

// PutMetadata inserts or replaces metadata records.
func (s *MemoryStore) PutMetadata(meta ...model.StationMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range meta {
		s.meta[m.StationID] = m
	}
}

// Stations returns station ids with observations, sorted.
func (s *MemoryStore) Stations(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Series returns a copy of the station series.
func (s *MemoryStore) Series(_ context.Context, stationID string) (model.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obs, ok := s.series[stationID]
	if !ok {
		return model.Series{}, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}
	cp := make([]model.Observation, len(obs))
	copy(cp, obs)
	return model.Series{StationID: stationID, Observations: cp}, nil
}

// Metadata returns the metadata of a station.
func (s *MemoryStore) Metadata(_ context.Context, stationID string) (model.StationMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[stationID]
	if !ok {
		return model.StationMetadata{}, &MissingMetadataError{StationID: stationID}
	}
	return m, nil
}
