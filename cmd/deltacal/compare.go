package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deltacal/pkg/calibrate"
	"deltacal/pkg/kinematics"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Fit every speculative factor set and rank the results",
	Long: `Runs one fit per factor set listed in [calibration] speculative (separated
by ';'), plus the main factor set, concurrently against the same probes and
prints them ordered by final RMS. Lower is not always better: more factors
fit noise as readily as geometry.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&probesPath, "probes", "p", "probes.yaml", "Probe sample file")
	compareCmd.Flags().StringVar(&metricsPath, "metrics", "", "Write run metrics in Prometheus text format to this file")
}

func runCompare(cmd *cobra.Command, args []string) error {
	j, err := loadJob(cmd)
	if err != nil {
		return err
	}
	masks := append([]kinematics.FactorMask{j.settings.Mask}, j.settings.Speculative...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine := calibrate.NewEngine(j.settings.Options)
	outcomes, err := engine.CalibrateEach(ctx, j.geometry, j.probes, masks)
	if err != nil {
		return err
	}

	best := calibrate.Best(outcomes)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tFACTORS\tN\tITER\tRMS\tMIN\tMAX\tSTATUS")
	for i, o := range rank(outcomes) {
		mark := ""
		if i == 0 && best >= 0 {
			mark = "*"
		}
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}
		r := o.Result
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%s\n",
			mark, o.Mask, o.Mask.Count(), r.Iterations, r.RMS, r.Min, r.Max, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writeMetrics(j.registry)
}

// rank orders outcomes by RMS with failed fits last.
func rank(outcomes []calibrate.Outcome) []calibrate.Outcome {
	out := append([]calibrate.Outcome(nil), outcomes...)
	sort.SliceStable(out, func(i, k int) bool {
		a, b := out[i], out[k]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		return a.Result.RMS < b.Result.RMS
	})
	return out
}
