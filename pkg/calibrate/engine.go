// Least-squares delta calibration
//
// The engine fits a subset of geometry factors to probe data with a
// Newton-type iteration: the probe points are converted to actuator steps
// once under the initial geometry, then each iteration builds a numeric
// Jacobian of effector height against the selected factors, solves the
// normal equations and adjusts a working copy of the geometry.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package calibrate

import (
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"

	"deltacal/pkg/errors"
	"deltacal/pkg/kinematics"
	"deltacal/pkg/log"
	"deltacal/pkg/matrix"
	"deltacal/pkg/metrics"
	"deltacal/pkg/probe"
)

// Engine runs calibration fits. It holds only configuration and is safe
// for concurrent use.
type Engine struct {
	opts Options
	log  *log.Logger
}

// NewEngine returns an engine using opts, with defaults for zero fields.
func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{opts: opts, log: opts.Logger}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Calibrate fits the factors in mask using the default options.
func Calibrate(initial kinematics.Geometry, probes *probe.Collection, mask kinematics.FactorMask) (Result, error) {
	return NewEngine(Options{}).Calibrate(initial, probes, mask)
}

// Calibrate fits the factors in mask to probes starting from initial.
// Neither initial nor probes is modified.
//
// If a linear solve degenerates partway through, the best result found so
// far is returned together with the error.
func (e *Engine) Calibrate(initial kinematics.Geometry, probes *probe.Collection, mask kinematics.FactorMask) (Result, error) {
	start := time.Now()
	n, f := probes.Len(), mask.Count()
	stats := metrics.RunStats{Mask: mask.String(), Samples: n, InitialRMS: probes.RMS()}

	best, err := e.fit(initial, probes, mask, &stats)
	best.Elapsed = time.Since(start)

	stats.Elapsed = best.Elapsed
	stats.Iterations = best.Iterations
	stats.FinalRMS = best.RMS
	stats.Outcome = outcome(err, stats.Outcome)
	e.opts.Metrics.ObserveRun(stats)

	entry := e.log.WithFields(log.Fields{
		"factors":    f,
		"samples":    n,
		"iterations": best.Iterations,
	})
	if err != nil {
		entry.WithField("error", err.Error()).Warn("calibration of %s failed", mask)
		return best, err
	}
	entry.Info("calibrated %s: rms %.4f -> %.4f", mask, best.InitialRMS, best.RMS)
	return best, nil
}

func outcome(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, errors.ErrCalibrationDegenerate):
		return metrics.OutcomeDegenerate
	case errors.Is(err, errors.ErrCalibrationUnderdetermined):
		return metrics.OutcomeUnderdetermined
	default:
		return metrics.OutcomeError
	}
}

func (e *Engine) fit(initial kinematics.Geometry, probes *probe.Collection, mask kinematics.FactorMask, stats *metrics.RunStats) (Result, error) {
	n, f := probes.Len(), mask.Count()

	samplesErr := probes.Errors()
	best := Result{
		Geometry:   initial.Clone(),
		RMS:        probes.RMS(),
		Residuals:  samplesErr,
		InitialRMS: probes.RMS(),
		Mask:       mask,
	}
	if n > 0 {
		best.Min, best.Max = probes.Min(), probes.Max()
	}

	switch {
	case f == 0:
		return best, errors.CalibrationConfigError("no calibration factors selected")
	case n == 0:
		return best, errors.CalibrationConfigError("no probe samples")
	case f > n:
		return best, errors.UnderdeterminedError(f, n)
	}

	// The probe points as the machine reported them, in actuator space.
	frozen := make([][3]float64, n)
	for i, s := range probes.Samples() {
		steps, err := initial.ForwardKinematics(r3.Vector{X: s.Actual.X, Y: s.Actual.Y})
		if err != nil {
			var he *errors.HostError
			if stderrors.As(err, &he) {
				he.SetContext("sample", i)
			}
			return best, err
		}
		frozen[i] = steps
	}

	working := initial.Clone()
	factors := mask.Factors()
	corrections := make([]float64, n)
	jac := matrix.New(n, f)
	rhs := make([]float64, n)
	stall := 0
	stats.Outcome = metrics.OutcomeConverged

	for iter := 1; stall < e.opts.MaxStall; iter++ {
		if iter > e.opts.MaxIterations {
			stats.Outcome = metrics.OutcomeIterationLimit
			break
		}
		best.Iterations = iter

		for i, steps := range frozen {
			for j, factor := range factors {
				d, err := working.Derivative(factor, steps, e.opts.Perturbation)
				if err != nil {
					return best, err
				}
				jac.Set(i, j, d)
			}
			rhs[i] = -(samplesErr[i] + corrections[i])
		}

		step, err := matrix.Solve(jac, rhs)
		if err != nil {
			if stderrors.Is(err, matrix.ErrSingular) {
				return best, errors.DegeneracyError(iter, err)
			}
			return best, err
		}
		for j, v := range step {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return best, errors.DegeneracyError(iter,
					fmt.Errorf("non-finite correction %g for %s", v, factors[j]))
			}
		}

		if err := working.Adjust(mask, step); err != nil {
			return best, err
		}

		residuals := make([]float64, n)
		for i, steps := range frozen {
			z, err := working.ZAt(steps)
			if err != nil {
				return best, err
			}
			corrections[i] = z
			residuals[i] = samplesErr[i] + z
		}
		rms := floats.Norm(residuals, 2) / math.Sqrt(float64(n))

		e.log.Debug("iteration %d: rms %.6f (best %.6f)", iter, rms, best.RMS)

		if rms < best.RMS {
			best.Geometry = working.Clone()
			best.RMS = rms
			best.Residuals = residuals
			best.Min = floats.Min(residuals)
			best.Max = floats.Max(residuals)
			stall = 0
		} else {
			stall++
		}
	}
	return best, nil
}
