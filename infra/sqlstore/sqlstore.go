// Package sqlstore keeps observations, station metadata, the run log and
// fleet snapshot history in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
)

// ErrNoSnapshot is returned when no fleet snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no fleet snapshot")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
        station_id TEXT NOT NULL,
        obs_date TEXT NOT NULL,
        hour INTEGER NOT NULL,
        energy_kwh DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (station_id, obs_date, hour)
    )`,
	`CREATE TABLE IF NOT EXISTS station_metadata (
        station_id TEXT PRIMARY KEY,
        capacity_kw DOUBLE PRECISION NOT NULL,
        area TEXT NOT NULL DEFAULT '',
        zone TEXT NOT NULL DEFAULT '',
        latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
        longitude DOUBLE PRECISION NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        ts BIGINT NOT NULL,
        kind TEXT NOT NULL,
        station_id TEXT NOT NULL DEFAULT '',
        record TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS runs_ts ON runs (ts)`,
	`CREATE TABLE IF NOT EXISTS fleet_snapshots (
        id TEXT PRIMARY KEY,
        generated_at BIGINT NOT NULL,
        payload TEXT NOT NULL
    )`,
}

// Store implements store.Source and runlog.Store on top of sqlx.
type Store struct {
	db *sqlx.DB
}

// Open connects using driver ("sqlite" or "postgres") and ensures the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" && (strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")) {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, fmt.Errorf("schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection. The schema must already exist.
func NewFromDB(db *sqlx.DB) *Store { return &Store{db: db} }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

type observationRow struct {
	StationID string  `db:"station_id"`
	Date      string  `db:"obs_date"`
	Hour      int     `db:"hour"`
	EnergyKWh float64 `db:"energy_kwh"`
}

// AddObservations upserts observations in a single transaction.
func (s *Store) AddObservations(ctx context.Context, obs ...model.Observation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO observations (station_id, obs_date, hour, energy_kwh)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (station_id, obs_date, hour) DO UPDATE SET energy_kwh = excluded.energy_kwh`))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.StationID, o.Date.Format(model.DateLayout), o.Hour, o.EnergyKWh); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert %s %s %d: %w", o.StationID, o.Date.Format(model.DateLayout), o.Hour, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// PutMetadata inserts or replaces metadata records.
func (s *Store) PutMetadata(ctx context.Context, metas ...model.StationMetadata) error {
	const q = `INSERT INTO station_metadata (station_id, capacity_kw, area, zone, latitude, longitude)
        VALUES (:station_id, :capacity_kw, :area, :zone, :latitude, :longitude)
        ON CONFLICT (station_id) DO UPDATE SET
            capacity_kw = excluded.capacity_kw,
            area = excluded.area,
            zone = excluded.zone,
            latitude = excluded.latitude,
            longitude = excluded.longitude`
	for _, m := range metas {
		if _, err := s.db.NamedExecContext(ctx, q, m); err != nil {
			return fmt.Errorf("metadata %s: %w", m.StationID, err)
		}
	}
	return nil
}

// Stations returns station ids with observations, sorted.
func (s *Store) Stations(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT station_id FROM observations ORDER BY station_id`); err != nil {
		return nil, err
	}
	return ids, nil
}

// Series returns the station history ordered by date and hour.
func (s *Store) Series(ctx context.Context, stationID string) (model.Series, error) {
	var rows []observationRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT station_id, obs_date, hour, energy_kwh
        FROM observations WHERE station_id = ? ORDER BY obs_date, hour`), stationID)
	if err != nil {
		return model.Series{}, err
	}
	if len(rows) == 0 {
		return model.Series{}, fmt.Errorf("%w: %s", store.ErrUnknownStation, stationID)
	}
	obs := make([]model.Observation, len(rows))
	for i, r := range rows {
		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return model.Series{}, fmt.Errorf("station %s: date %q: %w", stationID, r.Date, err)
		}
		obs[i] = model.Observation{StationID: r.StationID, Date: d, Hour: r.Hour, EnergyKWh: r.EnergyKWh}
	}
	return model.Series{StationID: stationID, Observations: obs}, nil
}

// Metadata returns the metadata of a station.
func (s *Store) Metadata(ctx context.Context, stationID string) (model.StationMetadata, error) {
	var m model.StationMetadata
	err := s.db.GetContext(ctx, &m, s.db.Rebind(`SELECT station_id, capacity_kw, area, zone, latitude, longitude
        FROM station_metadata WHERE station_id = ?`), stationID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StationMetadata{}, &store.MissingMetadataError{StationID: stationID}
	}
	if err != nil {
		return model.StationMetadata{}, err
	}
	return m, nil
}

// Append writes a run log record.
func (s *Store) Append(ctx context.Context, rec runlog.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO runs (id, ts, kind, station_id, record) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.Timestamp.UnixNano(), string(rec.Kind), rec.StationID, string(b))
	return err
}

// Query returns run log records matching q, oldest first.
func (s *Store) Query(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	var args []any
	query := `SELECT record FROM runs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.StationID != "" {
		query += ` AND station_id = ?`
		args = append(args, q.StationID)
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	query += ` ORDER BY ts`
	var data []string
	if err := s.db.SelectContext(ctx, &data, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	res := make([]runlog.Record, 0, len(data))
	for _, d := range data {
		var r runlog.Record
		if err := json.Unmarshal([]byte(d), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	return res, nil
}

// SavedSnapshot is a fleet snapshot with its storage id.
type SavedSnapshot struct {
	ID       string
	Snapshot fleet.Snapshot
}

// SaveSnapshot stores the snapshot and returns its id.
func (s *Store) SaveSnapshot(ctx context.Context, snap *fleet.Snapshot) (string, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO fleet_snapshots (id, generated_at, payload) VALUES (?, ?, ?)`),
		id, snap.GeneratedAt.UnixNano(), string(b))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Snapshots returns up to limit snapshots, newest first. A non-positive
// limit returns all of them.
func (s *Store) Snapshots(ctx context.Context, limit int) ([]SavedSnapshot, error) {
	query := `SELECT id, payload FROM fleet_snapshots ORDER BY generated_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []struct {
		ID      string `db:"id"`
		Payload string `db:"payload"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	res := make([]SavedSnapshot, len(rows))
	for i, r := range rows {
		res[i].ID = r.ID
		if err := json.Unmarshal([]byte(r.Payload), &res[i].Snapshot); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", r.ID, err)
		}
	}
	return res, nil
}

// LatestSnapshot returns the most recent snapshot or ErrNoSnapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (*fleet.Snapshot, error) {
	snaps, err := s.Snapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNoSnapshot
	}
	return &snaps[0].Snapshot, nil
}
