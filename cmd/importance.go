package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/core/prediction"
)

var importanceTop int

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "List the most important model features",
	RunE:  runImportance,
}

func init() {
	importanceCmd.Flags().IntVar(&importanceTop, "top", 10, "number of features")
	rootCmd.AddCommand(importanceCmd)
}

func runImportance(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeService(svc)

	imp, ok := prediction.TopImportances(svc.Pipeline().Predictor(), importanceTop)
	if !ok {
		_, err := fmt.Fprintln(cmd.ErrOrStderr(), "model does not expose feature importances")
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "FEATURE\tIMPORTANCE"); err != nil {
		return err
	}
	for _, i := range imp {
		if _, err := fmt.Fprintf(w, "%s\t%.4f\n", i.Feature, i.Importance); err != nil {
			return err
		}
	}
	return w.Flush()
}
