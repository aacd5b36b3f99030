package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/pkg/export"
)

var forecastOpts struct {
	station string
	horizon int
	growth  float64
	format  string
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the demand of one station",
	RunE:  runForecast,
}

func init() {
	f := forecastCmd.Flags()
	f.StringVarP(&forecastOpts.station, "station", "s", "", "station id")
	f.IntVar(&forecastOpts.horizon, "horizon", 0, "forecast horizon in hours (default from config)")
	f.Float64Var(&forecastOpts.growth, "growth", 0, "EV adoption growth in percent")
	f.StringVarP(&forecastOpts.format, "format", "f", export.FormatJSON, "output format: json or csv")
	_ = forecastCmd.MarkFlagRequired("station")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	cfg := svc.Pipeline().Config()
	horizon := forecastOpts.horizon
	if horizon == 0 {
		horizon = cfg.DefaultHorizon
	}
	growth := forecastOpts.growth
	if !cmd.Flags().Changed("growth") {
		growth = cfg.DefaultGrowth
	}
	rep, err := svc.Forecast(ctx, forecastOpts.station, horizon, growth)
	if err != nil {
		return fmt.Errorf("forecast %s: %w", forecastOpts.station, err)
	}
	return export.WriteReport(cmd.OutOrStdout(), forecastOpts.format, rep)
}
