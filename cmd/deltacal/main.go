// deltacal fits the geometry of a linear delta printer to bed probe data.
//
// Usage:
//
//	deltacal <command> --config printer.cfg [options]
//
// Commands:
//
//	calibrate  Fit the configured factors to a probe file
//	compare    Fit every speculative factor set and rank the results
//	simulate   Probe a simulated machine and write a probe file
//	factors    List the factor table and factor groups
//
// Examples:
//
//	# Simulate a machine whose rods are 1mm longer than configured
//	deltacal simulate --config printer.cfg --out probes.yaml
//
//	# Fit, write the result and save the new geometry into printer.cfg
//	deltacal calibrate --config printer.cfg --probes probes.yaml --out result.yaml --save
//
//	# Fit with debug output in JSON
//	deltacal calibrate --config printer.cfg --probes probes.yaml -v --log-format json
//
// Exit status is 0 on success, 2 for an invalid config or probe file, 3 when
// the geometry cannot reach a probe point, 4 when the fit is underdetermined
// or degenerate and 1 otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deltacal/pkg/config"
	"deltacal/pkg/errors"
	"deltacal/pkg/log"
)

const (
	exitFailure    = 1
	exitInput      = 2
	exitKinematics = 3
	exitFit        = 4
)

var (
	// Global flags
	configPath string
	verbose    bool
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "deltacal",
	Short: "Least-squares geometry calibration for delta printers",
	Long: `deltacal fits the geometry of a linear delta printer to bed probe data.

Geometry comes from the [delta_geometry] section of a printer.cfg style file,
fit settings from [calibration] and simulated machines from [simulation].`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New("deltacal")
		log.ConfigureFromEnv(logger)
		logger.SetWriter(cmd.ErrOrStderr())
		if cmd.Flags().Changed("log-level") {
			logger.SetLevel(log.ParseLevel(logLevel))
		}
		if verbose {
			logger.SetLevel(log.DEBUG)
		}
		if cmd.Flags().Changed("log-format") {
			logger.SetFormat(log.ParseFormat(logFormat))
		}
		log.SetDefaultLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.GetLogger("").Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "printer.cfg", "Printer configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every iteration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(factorsCmd)
}

// loadConfig reads the --config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// warnUnused logs options nobody read, which are usually typos.
func warnUnused(cfg *config.Config) {
	if err := cfg.CheckUnusedOptions(); err != nil {
		log.GetLogger("config").Warn("%v", err)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsConfig(err):
		return exitInput
	case errors.IsKinematics(err):
		return exitKinematics
	}
	switch errors.CodeOf(err) {
	case errors.ErrProbeFormat:
		return exitInput
	case errors.ErrCalibrationUnderdetermined, errors.ErrCalibrationDegenerate:
		return exitFit
	}
	return exitFailure
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
