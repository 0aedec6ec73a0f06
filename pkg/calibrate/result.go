package calibrate

import (
	"fmt"
	"time"

	"deltacal/pkg/kinematics"
)

// Result is the outcome of a calibration fit.
type Result struct {
	// Geometry is the best geometry found; the input geometry if no
	// iteration improved on it.
	Geometry kinematics.Geometry

	// RMS, Min and Max summarise Residuals.
	RMS      float64
	Min, Max float64

	// Residuals are the predicted height errors under Geometry, in sample
	// order.
	Residuals []float64

	InitialRMS float64
	Iterations int
	Mask       kinematics.FactorMask
	Elapsed    time.Duration
}

// Improved reports whether the fit reduced the RMS.
func (r Result) Improved() bool {
	return r.RMS < r.InitialRMS
}

// String summarises the fit.
func (r Result) String() string {
	return fmt.Sprintf("factors=%s rms %.4f -> %.4f (min %.4f, max %.4f) after %d iterations",
		r.Mask, r.InitialRMS, r.RMS, r.Min, r.Max, r.Iterations)
}
