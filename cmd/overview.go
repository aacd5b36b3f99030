package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/core/analytics"
	"github.com/kilianp07/evload/pkg/export"
)

var overviewStation string

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarise the history of one station",
	RunE:  runOverview,
}

func init() {
	overviewCmd.Flags().StringVarP(&overviewStation, "station", "s", "", "station id")
	_ = overviewCmd.MarkFlagRequired("station")
	rootCmd.AddCommand(overviewCmd)
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	series, err := svc.Source().Series(ctx, overviewStation)
	if err != nil {
		return err
	}
	ov, err := analytics.NewOverview(series)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), ov)
}
