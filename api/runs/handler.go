// Package runs serves the run log over HTTP.
package runs

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/evload/core/runlog"
)

// NewRunHandler returns an HTTP handler exposing the run log via GET /api/runs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Filters: station, kind, start and end (RFC3339).
func NewRunHandler(store runlog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := runlog.Query{
			StationID: r.URL.Query().Get("station"),
			Kind:      runlog.Kind(r.URL.Query().Get("kind")),
		}
		for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := r.URL.Query().Get(name)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+name+": "+err.Error())
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []runlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
