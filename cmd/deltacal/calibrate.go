package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"deltacal/pkg/calibrate"
	"deltacal/pkg/config"
	"deltacal/pkg/errors"
	"deltacal/pkg/kinematics"
	"deltacal/pkg/log"
	"deltacal/pkg/metrics"
	"deltacal/pkg/probe"
)

var (
	probesPath  string
	factorsFlag string
	outPath     string
	metricsPath string
	saveConfig  bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Fit the configured factors to a probe file",
	Long: `Reads the geometry from --config and the probe samples from --probes, fits
the factors named in [calibration] (or --factors) and prints the result.

--factors accepts group names (endstop_offset, tower_offset, rod_length,
rod_length_adjust, radius, radius_adjust, steps_per_unit) and single factor
names, comma separated.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVarP(&probesPath, "probes", "p", "probes.yaml", "Probe sample file")
	calibrateCmd.Flags().StringVarP(&factorsFlag, "factors", "f", "", "Factors to fit (overrides [calibration] factors)")
	calibrateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the result as YAML to this file")
	calibrateCmd.Flags().StringVar(&metricsPath, "metrics", "", "Write run metrics in Prometheus text format to this file")
	calibrateCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the fitted geometry back into --config (also [calibration] autosave)")
}

// job is everything a fit needs, loaded from the command line and config.
type job struct {
	cfg      *config.Config
	geometry kinematics.Geometry
	settings config.CalibrationSettings
	probes   *probe.Collection
	registry *metrics.Registry
}

func loadJob(cmd *cobra.Command) (*job, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	geometry, err := cfg.LoadGeometry()
	if err != nil {
		return nil, err
	}
	settings, err := cfg.LoadCalibration()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("factors") {
		if settings.Mask, err = calibrate.ParseSelection(factorsFlag); err != nil {
			return nil, fmt.Errorf("--factors: %w", err)
		}
	}
	probes, err := readProbes(probesPath)
	if err != nil {
		return nil, err
	}
	warnUnused(cfg)

	j := &job{cfg: cfg, geometry: geometry, settings: settings, probes: probes}
	if metricsPath != "" {
		j.registry = metrics.NewRegistry()
		j.settings.Options.Metrics = metrics.NewCalibrationMetrics(j.registry)
	}
	return j, nil
}

func readProbes(path string) (*probe.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return probe.Read(f)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	j, err := loadJob(cmd)
	if err != nil {
		return err
	}
	log.GetLogger("calibrate").WithFields(log.Fields{
		"samples": j.probes.Len(),
		"rms":     j.probes.RMS(),
		"sum_sq":  j.probes.SumOfSquares(),
	}).Info("fitting %s", j.settings.Mask)

	res, err := calibrate.NewEngine(j.settings.Options).Calibrate(j.geometry, j.probes, j.settings.Mask)
	return j.finish(cmd.OutOrStdout(), res, err)
}

// finish reports a fit. Only a fit that completed without error is written
// to --out or saved into the config; a degenerate fit that still improved
// is printed so the best geometry is visible, and its error is returned.
func (j *job) finish(w io.Writer, res calibrate.Result, err error) error {
	logger := log.GetLogger("calibrate")
	if err != nil {
		if errors.Is(err, errors.ErrCalibrationDegenerate) && res.Improved() {
			printResult(w, res)
			logger.Warn("best result before the fit failed is shown above and was not saved")
		}
		return err
	}

	printResult(w, res)
	if outPath != "" {
		if err := writeYAML(outPath, newResultDoc(res, j.probes.Len())); err != nil {
			return err
		}
	}
	if saveConfig || j.settings.Save {
		if err := config.SaveGeometry(configPath, res.Geometry.Params()); err != nil {
			return err
		}
		logger.Info("saved geometry to %s", configPath)
	}
	return writeMetrics(j.registry)
}

func writeMetrics(reg *metrics.Registry) error {
	if reg == nil || metricsPath == "" {
		return nil
	}
	f, err := os.Create(metricsPath)
	if err != nil {
		return err
	}
	if _, err := reg.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resultDoc is the YAML form of a calibration result.
type resultDoc struct {
	Factors    string            `yaml:"factors"`
	Samples    int               `yaml:"samples"`
	Iterations int               `yaml:"iterations"`
	InitialRMS float64           `yaml:"initial_rms"`
	RMS        float64           `yaml:"rms"`
	Min        float64           `yaml:"min"`
	Max        float64           `yaml:"max"`
	Elapsed    string            `yaml:"elapsed"`
	Geometry   kinematics.Params `yaml:"geometry"`
	Residuals  []float64         `yaml:"residuals,flow"`
}

func newResultDoc(res calibrate.Result, samples int) resultDoc {
	return resultDoc{
		Factors:    res.Mask.String(),
		Samples:    samples,
		Iterations: res.Iterations,
		InitialRMS: res.InitialRMS,
		RMS:        res.RMS,
		Min:        res.Min,
		Max:        res.Max,
		Elapsed:    res.Elapsed.String(),
		Geometry:   res.Geometry.Params(),
		Residuals:  res.Residuals,
	}
}

func writeYAML(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(w io.Writer, res calibrate.Result) {
	p := res.Geometry.Params()
	fmt.Fprintf(w, "Calibrated %s\n", res.Mask)
	fmt.Fprintf(w, "  rms %.4f -> %.4f mm (min %.4f, max %.4f) in %d iterations\n",
		res.InitialRMS, res.RMS, res.Min, res.Max, res.Iterations)
	fmt.Fprintf(w, "  rod_length:        %.4f\n", p.RodLength)
	fmt.Fprintf(w, "  radius:            %.4f\n", p.Radius)
	fmt.Fprintf(w, "  height:            %.4f\n", p.Height)
	fmt.Fprintf(w, "  endstop_offset:    %s\n", tower(p.EndstopOffset))
	fmt.Fprintf(w, "  tower_offset:      %s\n", tower(p.TowerOffset))
	fmt.Fprintf(w, "  steps_per_unit:    %s\n", tower(p.StepsPerUnit))
	fmt.Fprintf(w, "  radius_adjust:     %s\n", tower(p.RadiusAdjust))
	fmt.Fprintf(w, "  rod_length_adjust: %s\n", tower(p.RodLengthAdjust))
	for i, t := range res.Geometry.TowerPositions() {
		fmt.Fprintf(w, "  tower %c:           %.4f, %.4f\n", 'A'+i, t.X, t.Y)
	}
}

func tower(v [3]float64) string {
	return fmt.Sprintf("%.4f, %.4f, %.4f", v[0], v[1], v[2])
}
