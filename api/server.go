// Package api exposes forecasts, fleet risk, decisions and station analytics
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/kilianp07/evload/api/runs"
	"github.com/kilianp07/evload/core/events"
	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/forecast"
	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/internal/eventbus"
)

// FleetFunc returns the fleet snapshot to serve. refresh asks for a new
// aggregation instead of a cached one.
type FleetFunc func(ctx context.Context, refresh bool) (*fleet.Snapshot, error)

// Deps are the collaborators of the API. Source, Pipeline and Fleet are
// required; the rest is optional.
type Deps struct {
	Source   store.Source
	Pipeline *forecast.Pipeline
	Fleet    FleetFunc
	Decision risk.DecisionRules
	Runs     runlog.Store
	Bus      eventbus.EventBus[events.Event]
	Clock    clockwork.Clock
	Log      logger.Logger
	// Token, when set, is required as a bearer token on /api routes.
	Token string
	// Timeout bounds each computation; zero means no limit.
	Timeout time.Duration
}

type server struct {
	Deps
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) *mux.Router {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		d.Log = logger.Nop{}
	}
	if d.Runs == nil {
		d.Runs = runlog.Nop{}
	}
	d.Decision.SetDefaults()
	s := &server{Deps: d}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.Use(s.requireToken)
	a.HandleFunc("/stations", s.stations).Methods(http.MethodGet)
	a.HandleFunc("/stations/{id}/overview", s.overview).Methods(http.MethodGet)
	a.HandleFunc("/stations/{id}/forecast", s.forecast).Methods(http.MethodGet)
	a.HandleFunc("/fleet/risk", s.fleetRisk).Methods(http.MethodGet)
	a.HandleFunc("/decision", s.decision).Methods(http.MethodGet)
	a.HandleFunc("/model/importance", s.importance).Methods(http.MethodGet)
	a.Handle("/runs", runs.NewRunHandler(d.Runs, "")).Methods(http.MethodGet)
	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, d Deps, readTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}
}

func (s *server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.Clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Log.Debugw("http request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": s.Clock.Since(start).Milliseconds(),
		})
	})
}

func (s *server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *server) publish(e events.Event) {
	if s.Bus != nil {
		s.Bus.Publish(e)
	}
}

func (s *server) fail(op, stationID string, err error) {
	s.Log.Warnf("%s %s: %v", op, stationID, err)
	s.publish(events.FailureEvent{Operation: op, StationID: stationID, Err: err, Time: s.Clock.Now()})
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
