// Calibration run metrics
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import "time"

// Run outcomes recorded by CalibrationMetrics.
const (
	OutcomeConverged       = "converged"
	OutcomeIterationLimit  = "iteration_limit"
	OutcomeDegenerate      = "degenerate"
	OutcomeUnderdetermined = "underdetermined"
	OutcomeError           = "error"
)

// RunStats summarises one calibration run.
type RunStats struct {
	Mask       string
	Outcome    string
	Samples    int
	Iterations int
	InitialRMS float64
	FinalRMS   float64
	Elapsed    time.Duration
}

// CalibrationMetrics is the set of metrics recorded for calibration runs.
// A nil *CalibrationMetrics records nothing.
type CalibrationMetrics struct {
	Runs       *Counter
	Iterations *Histogram
	RMS        *Gauge
	Samples    *Gauge
	Duration   *Histogram
}

// NewCalibrationMetrics creates the calibration metrics and registers them
// with reg.
func NewCalibrationMetrics(reg *Registry) *CalibrationMetrics {
	m := &CalibrationMetrics{
		Runs: NewCounter("deltacal_calibration_runs_total",
			"Calibration runs by outcome"),
		Iterations: NewHistogram("deltacal_calibration_iterations",
			"Newton iterations per calibration run", ExponentialBuckets(1, 2, 10)),
		RMS: NewGauge("deltacal_calibration_rms_mm",
			"Probe residual RMS before and after the fit"),
		Samples: NewGauge("deltacal_calibration_samples",
			"Probe samples used by the last run for each factor set"),
		Duration: NewHistogram("deltacal_calibration_duration_seconds",
			"Wall time per calibration run", ExponentialBuckets(0.001, 4, 8)),
	}
	reg.MustRegister(m.Runs)
	reg.MustRegister(m.Iterations)
	reg.MustRegister(m.RMS)
	reg.MustRegister(m.Samples)
	reg.MustRegister(m.Duration)
	return m
}

// ObserveRun records one finished run.
func (m *CalibrationMetrics) ObserveRun(s RunStats) {
	if m == nil {
		return
	}
	outcome := Labels{"outcome": s.Outcome}
	mask := Labels{"factors": s.Mask}

	m.Runs.Inc(outcome)
	m.Iterations.Observe(mask, float64(s.Iterations))
	m.Duration.Observe(mask, s.Elapsed.Seconds())
	m.Samples.Set(mask, float64(s.Samples))
	m.RMS.Set(mask.with("stage", "initial"), s.InitialRMS)
	m.RMS.Set(mask.with("stage", "final"), s.FinalRMS)
}
