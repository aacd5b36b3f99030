// Package dataset reads and writes the CSV files holding hourly station
// observations and station metadata.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/store"
)

// ErrMalformed is returned for a header or record that cannot be parsed.
var ErrMalformed = errors.New("malformed csv")

// ObservationHeader is the column order written by WriteObservations.
var ObservationHeader = []string{"date", "hour", "station_id", "energy_kwh"}

// MetadataHeader is the column order written by WriteMetadata.
var MetadataHeader = []string{"station_id", "capacity_kw", "area", "zone", "latitude", "longitude"}

// columns maps header names to indexes and reports missing required names.
func columns(header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, r := range required {
		if _, ok := idx[r]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, r)
		}
	}
	return idx, nil
}

// ReadObservations parses observation records. Columns are matched by header
// name so extra columns are ignored.
func ReadObservations(r io.Reader) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	col, err := columns(header, ObservationHeader)
	if err != nil {
		return nil, err
	}
	var out []model.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("%w: line %d: %d fields", ErrMalformed, line, len(rec))
		}
		date, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[col["date"]]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: date: %v", ErrMalformed, line, err)
		}
		hour, err := strconv.Atoi(strings.TrimSpace(rec[col["hour"]]))
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("%w: line %d: hour %q", ErrMalformed, line, rec[col["hour"]])
		}
		energy, err := strconv.ParseFloat(strings.TrimSpace(rec[col["energy_kwh"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: energy: %v", ErrMalformed, line, err)
		}
		out = append(out, model.Observation{
			StationID: strings.TrimSpace(rec[col["station_id"]]),
			Date:      date,
			Hour:      hour,
			EnergyKWh: energy,
		})
	}
	return out, nil
}

// ReadMetadata parses station metadata records.
func ReadMetadata(r io.Reader) ([]model.StationMetadata, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	col, err := columns(header, []string{"station_id", "capacity_kw"})
	if err != nil {
		return nil, err
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(rec []string, name string) (float64, error) {
		s := field(rec, name)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var out []model.StationMetadata
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		m := model.StationMetadata{
			StationID: field(rec, "station_id"),
			Area:      field(rec, "area"),
			Zone:      field(rec, "zone"),
		}
		if m.CapacityKW, err = number(rec, "capacity_kw"); err != nil {
			return nil, fmt.Errorf("%w: line %d: capacity: %v", ErrMalformed, line, err)
		}
		if m.Latitude, err = number(rec, "latitude"); err != nil {
			return nil, fmt.Errorf("%w: line %d: latitude: %v", ErrMalformed, line, err)
		}
		if m.Longitude, err = number(rec, "longitude"); err != nil {
			return nil, fmt.Errorf("%w: line %d: longitude: %v", ErrMalformed, line, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteObservations writes obs with ObservationHeader.
func WriteObservations(w io.Writer, obs []model.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ObservationHeader); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{
			o.Date.Format(model.DateLayout),
			strconv.Itoa(o.Hour),
			o.StationID,
			strconv.FormatFloat(o.EnergyKWh, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetadata writes metas with MetadataHeader.
func WriteMetadata(w io.Writer, metas []model.StationMetadata) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetadataHeader); err != nil {
		return err
	}
	for _, m := range metas {
		rec := []string{
			m.StationID,
			strconv.FormatFloat(m.CapacityKW, 'f', -1, 64),
			m.Area,
			m.Zone,
			strconv.FormatFloat(m.Latitude, 'f', -1, 64),
			strconv.FormatFloat(m.Longitude, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads the observation file and, when metaPath is not empty, the
// metadata file into a MemoryStore.
func Load(obsPath, metaPath string) (*store.MemoryStore, error) {
	s := store.NewMemoryStore()
	f, err := os.Open(obsPath)
	if err != nil {
		return nil, err
	}
	obs, err := ReadObservations(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", obsPath, err)
	}
	s.AddObservations(obs...)
	if metaPath == "" {
		return s, nil
	}
	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, err
	}
	metas, err := ReadMetadata(mf)
	_ = mf.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", metaPath, err)
	}
	s.PutMetadata(metas...)
	return s, nil
}

// Save writes observations and metadata to the given paths. An empty
// metaPath skips the metadata file.
func Save(obsPath, metaPath string, obs []model.Observation, metas []model.StationMetadata) error {
	if err := writeFile(obsPath, func(w io.Writer) error { return WriteObservations(w, obs) }); err != nil {
		return err
	}
	if metaPath == "" {
		return nil
	}
	return writeFile(metaPath, func(w io.Writer) error { return WriteMetadata(w, metas) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
