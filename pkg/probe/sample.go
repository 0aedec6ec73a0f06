// Probe samples and their running statistics
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package probe

import (
	"math"

	"github.com/golang/geo/r3"
)

// Sample is one probe measurement: the commanded XY target (Z is zero) and
// the effector position at which the probe triggered.
type Sample struct {
	TargetX, TargetY float64
	Actual           r3.Vector
}

// NewSample builds a sample from a target and a measured position.
func NewSample(x, y float64, actual r3.Vector) Sample {
	return Sample{TargetX: x, TargetY: y, Actual: actual}
}

// Target returns the commanded position with Z fixed at zero.
func (s Sample) Target() r3.Vector {
	return r3.Vector{X: s.TargetX, Y: s.TargetY}
}

// Error is the measured height deviation at the target.
func (s Sample) Error() float64 {
	return s.Actual.Z
}

// Offset returns the vector from target to measured position.
func (s Sample) Offset() r3.Vector {
	return s.Actual.Sub(s.Target())
}

// Collection is an ordered, append-only set of samples. Min, Max and RMS of
// the sample errors are kept up to date on every Append.
type Collection struct {
	samples      []Sample
	min, max     float64
	sumOfSquares float64
	rms          float64
}

// NewCollection returns an empty collection.
func NewCollection(samples ...Sample) *Collection {
	c := &Collection{}
	for _, s := range samples {
		c.Append(s)
	}
	return c
}

// Append adds s to the end of the collection.
func (c *Collection) Append(s Sample) {
	e := s.Error()
	if len(c.samples) == 0 {
		c.min, c.max = e, e
	} else {
		c.min = math.Min(c.min, e)
		c.max = math.Max(c.max, e)
	}
	c.samples = append(c.samples, s)
	c.sumOfSquares += e * e
	c.rms = math.Sqrt(c.sumOfSquares / float64(len(c.samples)))
}

// Len returns the number of samples.
func (c *Collection) Len() int {
	return len(c.samples)
}

// At returns the i-th sample.
func (c *Collection) At(i int) Sample {
	return c.samples[i]
}

// Samples returns a copy of the samples in insertion order.
func (c *Collection) Samples() []Sample {
	out := make([]Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// Errors returns each sample's error in insertion order.
func (c *Collection) Errors() []float64 {
	out := make([]float64, len(c.samples))
	for i, s := range c.samples {
		out[i] = s.Error()
	}
	return out
}

// Min returns the smallest error, or zero for an empty collection.
func (c *Collection) Min() float64 { return c.min }

// Max returns the largest error, or zero for an empty collection.
func (c *Collection) Max() float64 { return c.max }

// RMS returns the root mean square error, or zero for an empty collection.
func (c *Collection) RMS() float64 { return c.rms }

// SumOfSquares returns the sum of squared errors.
func (c *Collection) SumOfSquares() float64 { return c.sumOfSquares }
