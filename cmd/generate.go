package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/infra/dataset"
	"github.com/kilianp07/evload/simulator"
)

var generateOpts struct {
	days     int
	stations int
	seed     int64
	out      string
	profile  string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic charging dataset and station metadata",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&generateOpts.days, "days", 180, "number of days")
	f.IntVar(&generateOpts.stations, "stations", 5, "number of stations")
	f.Int64Var(&generateOpts.seed, "seed", 0, "random seed (0 uses the current time)")
	f.StringVarP(&generateOpts.out, "out", "o", "data", "output directory")
	f.StringVar(&generateOpts.profile, "profile", "", "hourly weight profile (JSON or YAML)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := simulator.Config{Days: generateOpts.days, Stations: generateOpts.stations}
	if generateOpts.profile != "" {
		data, err := os.ReadFile(generateOpts.profile)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		if cfg.Profile, err = simulator.LoadProfile(data); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}
	seed := generateOpts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	obs, err := simulator.Generate(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(generateOpts.out, 0o755); err != nil {
		return err
	}
	obsPath := filepath.Join(generateOpts.out, "ev_charging_data.csv")
	metaPath := filepath.Join(generateOpts.out, "station_metadata.csv")
	if err := dataset.Save(obsPath, metaPath, obs, simulator.Metadata(generateOpts.stations)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d observations to %s and metadata to %s\n", len(obs), obsPath, metaPath)
	return err
}
