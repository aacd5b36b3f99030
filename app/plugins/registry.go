package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/core/store"
)

// SourceFactory opens an observation and metadata source.
type SourceFactory func(ctx context.Context, cfg config.DataConfig) (store.Source, error)

// RunLogFactory builds a run log store from the logging configuration.
type RunLogFactory func(ctx context.Context, cfg config.LoggingConfig) (runlog.Store, error)

var (
	Sources = map[string]SourceFactory{}
	RunLogs = map[string]RunLogFactory{}
)

func RegisterSource(name string, f SourceFactory) { Sources[name] = f }
func RegisterRunLog(name string, f RunLogFactory) { RunLogs[name] = f }

// NewSource opens the source named by cfg.Source.
func NewSource(ctx context.Context, cfg config.DataConfig) (store.Source, error) {
	f, ok := Sources[cfg.Source]
	if !ok {
		return nil, fmt.Errorf("unknown data source %q (known: %v)", cfg.Source, names(Sources))
	}
	return f(ctx, cfg)
}

// NewRunLog builds the run log store named by cfg.Backend.
func NewRunLog(ctx context.Context, cfg config.LoggingConfig) (runlog.Store, error) {
	f, ok := RunLogs[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown run log backend %q (known: %v)", cfg.Backend, names(RunLogs))
	}
	return f(ctx, cfg)
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
