package main

import (
	"os"

	"github.com/spf13/cobra"

	"deltacal/pkg/kinematics"
	"deltacal/pkg/log"
	"deltacal/pkg/simulate"
)

var samplesOut string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Probe a simulated machine and write a probe file",
	Long: `Builds a machine whose true geometry is [delta_geometry] overridden by the
geometry options of [simulation] (and optionally jittered), probes it on a
spiral or rings pattern as if it had the configured geometry and writes the
samples.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&samplesOut, "out", "o", "probes.yaml", "Probe sample file to write")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	assumed, err := cfg.LoadGeometry()
	if err != nil {
		return err
	}
	ss, err := cfg.LoadSimulation(assumed.Params())
	if err != nil {
		return err
	}
	warnUnused(cfg)

	truthParams := ss.Truth
	if ss.Jitter > 0 {
		truthParams = simulate.Jitter(truthParams, ss.Jitter, simulate.NewRand(ss.Seed))
	}
	truth, err := kinematics.NewGeometry(truthParams)
	if err != nil {
		return err
	}

	logger := log.GetLogger("simulate")
	logger.Debug("true geometry %s", truth)

	points, err := simulate.Points(ss.Pattern, ss.Points, ss.ProbeRadius)
	if err != nil {
		return err
	}
	probes, err := simulate.NewMachine(truth, assumed).ProbeAll(points)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"samples": probes.Len(),
		"rms":     probes.RMS(),
		"min":     probes.Min(),
		"max":     probes.Max(),
	}).Info("probed simulated machine")

	f, err := os.Create(samplesOut)
	if err != nil {
		return err
	}
	if err := probes.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
