package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/evload/core/runlog"
)

type memStore struct{ recs []runlog.Record }

func (m *memStore) Append(ctx context.Context, r runlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	var res []runlog.Record
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestRunHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	_ = store.Append(context.Background(), runlog.Record{ID: "1", Timestamp: base, Kind: runlog.KindForecast, StationID: "A"})
	_ = store.Append(context.Background(), runlog.Record{ID: "2", Timestamp: base.Add(time.Hour), Kind: runlog.KindForecast, StationID: "B"})
	h := NewRunHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/runs?station=A", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []runlog.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].ID != "1" {
		t.Fatalf("unexpected records: %+v", out)
	}

	req = httptest.NewRequest("GET", "/api/runs?start="+base.Add(30*time.Minute).Format(time.RFC3339), nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	out = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].ID != "2" {
		t.Fatalf("unexpected records: %+v", out)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/api/runs", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestRunHandler_BadTime(t *testing.T) {
	h := NewRunHandler(&memStore{}, "")
	req := httptest.NewRequest("GET", "/api/runs?end=yesterday", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestRunHandler_Empty(t *testing.T) {
	h := NewRunHandler(&memStore{}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/runs", nil))
	if rr.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", rr.Body.String())
	}
}
