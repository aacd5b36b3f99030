package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kilianp07/evload/core/analytics"
	"github.com/kilianp07/evload/core/events"
	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/pkg/export"
)

const (
	defaultImportanceTop = 10
	defaultBins          = 30
	maxBins              = 200
)

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, s)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def *float64) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if def == nil {
			return 0, fmt.Errorf("%w: %s is required", errBadParam, name)
		}
		return *def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, s)
	}
	return v, nil
}

func (s *server) stations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Source.Stations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"stations": ids})
}

type overviewResponse struct {
	*analytics.Overview
	Daily        []analytics.DailyTotal  `json:"daily"`
	Weekday      []analytics.WeekdayMean `json:"weekday"`
	Distribution []analytics.Bin         `json:"distribution"`
}

func (s *server) overview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bins, err := intParam(r, "bins", defaultBins)
	if err != nil {
		writeError(w, err)
		return
	}
	if bins < 1 || bins > maxBins {
		writeError(w, fmt.Errorf("%w: bins=%d not in [1, %d]", errBadParam, bins, maxBins))
		return
	}
	series, err := s.Source.Series(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	ov, err := analytics.NewOverview(series)
	if err != nil {
		writeError(w, err)
		return
	}
	dist, err := analytics.Distribution(series, bins)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		Overview:     ov,
		Daily:        analytics.DailyTotals(series),
		Weekday:      analytics.WeekdayProfile(series),
		Distribution: dist,
	})
}

func (s *server) forecast(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cfg := s.Pipeline.Config()
	horizon, err := intParam(r, "horizon", cfg.DefaultHorizon)
	if err == nil {
		err = cfg.CheckHorizon(horizon)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	growth, err := floatParam(r, "growth", &cfg.DefaultGrowth)
	if err == nil {
		err = cfg.CheckGrowth(growth)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != export.FormatJSON && format != export.FormatCSV {
		writeError(w, fmt.Errorf("%w: format=%q", errBadParam, format))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	series, err := s.Source.Series(ctx, id)
	if err != nil {
		s.fail("forecast", id, err)
		writeError(w, err)
		return
	}
	var meta *model.StationMetadata
	m, err := s.Source.Metadata(ctx, id)
	switch {
	case err == nil:
		meta = &m
	case errors.Is(err, store.ErrMissingMetadata):
		// reported without infrastructure utilization
	default:
		s.fail("forecast", id, err)
		writeError(w, err)
		return
	}

	start := s.Clock.Now()
	rep, err := s.Pipeline.Report(ctx, series, meta, horizon, growth)
	if err != nil {
		s.fail("forecast", id, err)
		writeError(w, err)
		return
	}
	s.publish(events.ForecastEvent{Report: rep, Duration: s.Clock.Since(start)})
	if err := s.Runs.Append(ctx, runlog.FromReport(rep)); err != nil {
		s.Log.Errorf("run log append: %v", err)
	}

	if format == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteReportCSV(w, rep); err != nil {
			s.Log.Errorf("write csv: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type fleetResponse struct {
	*fleet.Snapshot
	Counts map[model.InfraRisk]int `json:"counts"`
}

func (s *server) fleetRisk(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	snap, err := s.Fleet(ctx, refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteSnapshotCSV(w, snap); err != nil {
			s.Log.Errorf("write csv: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, fleetResponse{Snapshot: snap, Counts: snap.Counts()})
}

func (s *server) decision(w http.ResponseWriter, r *http.Request) {
	demand, err := floatParam(r, "demand", nil)
	if err != nil {
		writeError(w, err)
		return
	}
	capacity, err := floatParam(r, "capacity", nil)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.Decision.Decide(demand, capacity)
	if err != nil {
		s.fail("decision", "", err)
		writeError(w, err)
		return
	}
	s.publish(events.DecisionEvent{Decision: d, Time: s.Clock.Now()})
	writeJSON(w, http.StatusOK, d)
}

type importanceResponse struct {
	Available   bool                    `json:"available"`
	Importances []prediction.Importance `json:"importances"`
	Warning     string                  `json:"warning,omitempty"`
}

func (s *server) importance(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", defaultImportanceTop)
	if err != nil {
		writeError(w, err)
		return
	}
	imp, ok := prediction.TopImportances(s.Pipeline.Predictor(), top)
	resp := importanceResponse{Available: ok, Importances: imp}
	if !ok {
		resp.Importances = []prediction.Importance{}
		resp.Warning = "model does not expose feature importances"
	}
	writeJSON(w, http.StatusOK, resp)
}
