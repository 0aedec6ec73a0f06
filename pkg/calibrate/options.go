// Calibration engine options
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package calibrate

import (
	"deltacal/pkg/kinematics"
	"deltacal/pkg/log"
	"deltacal/pkg/metrics"
)

const (
	// DefaultMaxStall is the number of consecutive iterations without an
	// RMS improvement after which a fit stops.
	DefaultMaxStall = 20

	// DefaultMaxIterations caps the total iterations of one fit.
	DefaultMaxIterations = 500
)

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	// Perturbation is the central difference step for the Jacobian.
	Perturbation float64

	MaxStall      int
	MaxIterations int

	Logger  *log.Logger
	Metrics *metrics.CalibrationMetrics
}

// DefaultOptions returns the options used by a zero Options value.
func DefaultOptions() Options {
	return Options{
		Perturbation:  kinematics.DefaultPerturbation,
		MaxStall:      DefaultMaxStall,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Perturbation <= 0 {
		o.Perturbation = d.Perturbation
	}
	if o.MaxStall <= 0 {
		o.MaxStall = d.MaxStall
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Logger == nil {
		o.Logger = log.GetLogger("calibrate")
	}
	return o
}
