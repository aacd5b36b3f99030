// Package export writes forecast reports and fleet snapshots as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ReportHeader is the CSV header of a forecast report.
var ReportHeader = []string{"station_id", "hour_offset", "predicted_value", "upper_bound", "lower_bound"}

// SnapshotHeader is the CSV header of a fleet snapshot.
var SnapshotHeader = []string{"station_id", "area", "zone", "latitude", "longitude", "peak_forecast", "capacity_kw", "utilization_pct", "risk"}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReportCSV writes one row per forecast point.
func WriteReportCSV(w io.Writer, r *forecast.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return err
	}
	for _, p := range r.Points {
		rec := []string{
			r.StationID,
			strconv.Itoa(p.HourOffset),
			formatFloat(p.Value),
			formatFloat(p.Upper),
			formatFloat(p.Lower),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSnapshotCSV writes one row per fleet record. Failed stations are not
// part of the output.
func WriteSnapshotCSV(w io.Writer, s *fleet.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SnapshotHeader); err != nil {
		return err
	}
	for _, r := range s.Records {
		rec := []string{
			r.StationID,
			r.Area,
			r.Zone,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			formatFloat(r.PeakForecast),
			formatFloat(r.CapacityKW),
			formatFloat(r.UtilizationPct),
			r.Risk.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport writes r in the given format.
func WriteReport(w io.Writer, format string, r *forecast.Report) error {
	switch format {
	case "", FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteReportCSV(w, r)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteSnapshot writes s in the given format.
func WriteSnapshot(w io.Writer, format string, s *fleet.Snapshot) error {
	switch format {
	case "", FormatJSON:
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteSnapshotCSV(w, s)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
