package plugins

import (
	"context"

	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/infra/dataset"
	"github.com/kilianp07/evload/infra/sqlstore"
)

func init() {
	RegisterSource(config.SourceCSV, func(_ context.Context, c config.DataConfig) (store.Source, error) {
		s, err := dataset.Load(c.ObservationsPath, c.MetadataPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	RegisterSource(config.SourceSQLite, func(ctx context.Context, c config.DataConfig) (store.Source, error) {
		return openSQL(ctx, "sqlite", c.DSN)
	})
	RegisterSource(config.SourcePostgres, func(ctx context.Context, c config.DataConfig) (store.Source, error) {
		return openSQL(ctx, "postgres", c.DSN)
	})

	RegisterRunLog("jsonl", func(_ context.Context, c config.LoggingConfig) (runlog.Store, error) {
		s, err := runlog.NewJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	RegisterRunLog("sqlite", func(ctx context.Context, c config.LoggingConfig) (runlog.Store, error) {
		s, err := sqlstore.Open(ctx, "sqlite", c.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	RegisterRunLog("none", func(context.Context, config.LoggingConfig) (runlog.Store, error) {
		return runlog.Nop{}, nil
	})
}

func openSQL(ctx context.Context, driver, dsn string) (store.Source, error) {
	s, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}
