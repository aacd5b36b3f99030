package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/app/plugins"
	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/runlog"
	"github.com/kilianp07/evload/pkg/export"
)

var runsOpts struct {
	station string
	kind    string
	since   time.Duration
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query the run log",
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVarP(&runsOpts.station, "station", "s", "", "filter by station id")
	f.StringVar(&runsOpts.kind, "kind", "", "filter by kind: forecast or fleet")
	f.DurationVar(&runsOpts.since, "since", 0, "only records newer than this duration")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := plugins.NewRunLog(ctx, cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	q := runlog.Query{StationID: runsOpts.station, Kind: runlog.Kind(runsOpts.kind)}
	if runsOpts.since > 0 {
		q.Start = time.Now().Add(-runsOpts.since)
	}
	recs, err := st.Query(ctx, q)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []runlog.Record{}
	}
	return export.WriteJSON(cmd.OutOrStdout(), recs)
}
