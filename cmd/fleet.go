package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/app"
	coremqtt "github.com/kilianp07/evload/core/mqtt"
	"github.com/kilianp07/evload/pkg/export"
)

var fleetOpts struct {
	format  string
	publish bool
}

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Compute the fleet risk snapshot",
	RunE:  runFleet,
}

func init() {
	fleetCmd.Flags().StringVarP(&fleetOpts.format, "format", "f", export.FormatJSON, "output format: json or csv")
	fleetCmd.Flags().BoolVar(&fleetOpts.publish, "publish", false, "publish the snapshot to the configured MQTT broker")
	rootCmd.AddCommand(fleetCmd)
}

func runFleet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var opts []app.Option
	if !fleetOpts.publish {
		opts = append(opts, app.WithPublisher(coremqtt.NopPublisher{}))
	}
	svc, err := newService(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeService(svc)

	snap, err := svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("fleet snapshot: %w", err)
	}
	for _, f := range snap.Failures {
		if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", f.StationID, f.Message); err != nil {
			return err
		}
	}
	return export.WriteSnapshot(cmd.OutOrStdout(), fleetOpts.format, snap)
}
