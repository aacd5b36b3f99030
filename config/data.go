package config

import "fmt"

// Data source kinds.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// DataConfig selects where observations and station metadata come from.
type DataConfig struct {
	Source           string `json:"source"`
	ObservationsPath string `json:"observations_path"`
	MetadataPath     string `json:"metadata_path"`
	// DSN is the sqlite file or postgres connection string.
	DSN string `json:"dsn"`
	// SnapshotHistory stores every fleet snapshot when the source is SQL.
	SnapshotHistory bool `json:"snapshot_history"`
}

// SetDefaults applies sane defaults.
func (c *DataConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = SourceCSV
	}
	if c.Source == SourceCSV {
		if c.ObservationsPath == "" {
			c.ObservationsPath = "data/ev_charging_data.csv"
		}
		if c.MetadataPath == "" {
			c.MetadataPath = "data/station_metadata.csv"
		}
	}
	if c.Source == SourceSQLite && c.DSN == "" {
		c.DSN = "evload.db"
	}
}

// Validate checks mandatory fields.
func (c DataConfig) Validate() error {
	switch c.Source {
	case SourceCSV:
		if c.ObservationsPath == "" {
			return fmt.Errorf("observations_path is required")
		}
	case SourceSQLite, SourcePostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for %s", c.Source)
		}
	default:
		return fmt.Errorf("unknown source %s", c.Source)
	}
	return nil
}
