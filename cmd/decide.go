package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/pkg/export"
)

var decideOpts struct {
	demand   float64
	capacity float64
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Recommend an action for a demand against a capacity",
	RunE:  runDecide,
}

func init() {
	decideCmd.Flags().Float64Var(&decideOpts.demand, "demand", 0, "predicted demand in kW")
	decideCmd.Flags().Float64Var(&decideOpts.capacity, "capacity", 0, "station capacity in kW")
	_ = decideCmd.MarkFlagRequired("demand")
	_ = decideCmd.MarkFlagRequired("capacity")
	rootCmd.AddCommand(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)
	d, err := svc.Decide(decideOpts.demand, decideOpts.capacity)
	if err != nil {
		return err
	}
	return export.WriteJSON(cmd.OutOrStdout(), d)
}
