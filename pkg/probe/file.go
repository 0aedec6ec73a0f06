// YAML probe files
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package probe

import (
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"deltacal/pkg/errors"
)

type fileSample struct {
	Target []float64 `yaml:"target,flow"`
	Actual []float64 `yaml:"actual,flow"`
}

type fileFormat struct {
	Samples []fileSample `yaml:"samples"`
}

// Read decodes a probe file of the form
//
//	samples:
//	  - target: [x, y]
//	    actual: [x, y, z]
func Read(r io.Reader) (*Collection, error) {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return NewCollection(), nil
		}
		return nil, errors.ProbeFormatError("cannot decode probe file", err)
	}

	c := NewCollection()
	for i, fs := range f.Samples {
		if len(fs.Target) != 2 {
			return nil, errors.ProbeFormatError(
				fmt.Sprintf("sample %d: target needs 2 coordinates, got %d", i, len(fs.Target)), nil)
		}
		if len(fs.Actual) != 3 {
			return nil, errors.ProbeFormatError(
				fmt.Sprintf("sample %d: actual needs 3 coordinates, got %d", i, len(fs.Actual)), nil)
		}
		if !finite(fs.Target) || !finite(fs.Actual) {
			return nil, errors.ProbeFormatError(fmt.Sprintf("sample %d: coordinates must be finite", i), nil)
		}
		c.Append(NewSample(fs.Target[0], fs.Target[1],
			r3.Vector{X: fs.Actual[0], Y: fs.Actual[1], Z: fs.Actual[2]}))
	}
	return c, nil
}

func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Write encodes c in the format accepted by Read.
func (c *Collection) Write(w io.Writer) error {
	f := fileFormat{Samples: make([]fileSample, len(c.samples))}
	for i, s := range c.samples {
		f.Samples[i] = fileSample{
			Target: []float64{s.TargetX, s.TargetY},
			Actual: []float64{s.Actual.X, s.Actual.Y, s.Actual.Z},
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode probe file: %w", err)
	}
	return enc.Close()
}
