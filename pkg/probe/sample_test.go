// Probe sample tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package probe

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"

	"deltacal/pkg/errors"
)

func TestCollectionStatistics(t *testing.T) {
	c := NewCollection()
	if c.Len() != 0 || c.RMS() != 0 || c.Min() != 0 || c.Max() != 0 {
		t.Fatalf("empty collection not zeroed: %+v", c)
	}

	errs := []float64{0.3, -0.4, 0.1, -0.2}
	for i, e := range errs {
		c.Append(NewSample(float64(i), 0, r3.Vector{X: float64(i), Z: e}))
	}

	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
	if c.Min() != -0.4 || c.Max() != 0.3 {
		t.Errorf("Min/Max = %v/%v, want -0.4/0.3", c.Min(), c.Max())
	}
	if math.Abs(c.SumOfSquares()-0.30) > 1e-12 {
		t.Errorf("SumOfSquares() = %v, want 0.30", c.SumOfSquares())
	}
	wantRMS := math.Sqrt((0.09 + 0.16 + 0.01 + 0.04) / 4)
	if math.Abs(c.RMS()-wantRMS) > 1e-12 {
		t.Errorf("RMS() = %v, want %v", c.RMS(), wantRMS)
	}
	if diff := cmp.Diff(errs, c.Errors()); diff != "" {
		t.Errorf("Errors() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectionSingleNegative(t *testing.T) {
	c := NewCollection(NewSample(0, 0, r3.Vector{Z: -1.5}))
	if c.Min() != -1.5 || c.Max() != -1.5 {
		t.Errorf("Min/Max = %v/%v, want -1.5/-1.5", c.Min(), c.Max())
	}
	if c.RMS() != 1.5 {
		t.Errorf("RMS() = %v, want 1.5", c.RMS())
	}
}

func TestSamplesIsCopy(t *testing.T) {
	c := NewCollection(NewSample(1, 2, r3.Vector{X: 1, Y: 2, Z: 0.5}))
	s := c.Samples()
	s[0].Actual.Z = 99
	if c.At(0).Error() != 0.5 {
		t.Error("mutating Samples() result changed the collection")
	}
}

func TestSampleOffset(t *testing.T) {
	s := NewSample(10, -5, r3.Vector{X: 10.5, Y: -5, Z: 0.25})
	if got := s.Offset(); got != (r3.Vector{X: 0.5, Z: 0.25}) {
		t.Errorf("Offset() = %v", got)
	}
	if s.Target().Z != 0 {
		t.Errorf("target Z = %v, want 0", s.Target().Z)
	}
}

func TestFileRoundTrip(t *testing.T) {
	c := NewCollection(
		NewSample(0, 0, r3.Vector{Z: 0.12}),
		NewSample(50.5, -20, r3.Vector{X: 50.5, Y: -20, Z: -0.07}),
	)

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "target: [50.5, -20]") {
		t.Errorf("expected flow style sequences, got:\n%s", buf.String())
	}

	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(c.Samples(), back.Samples()); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if back.RMS() != c.RMS() {
		t.Errorf("RMS %v, want %v", back.RMS(), c.RMS())
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short target", "samples:\n  - target: [1]\n    actual: [1, 2, 3]\n"},
		{"short actual", "samples:\n  - target: [1, 2]\n    actual: [1, 2]\n"},
		{"unknown key", "samples:\n  - target: [1, 2]\n    actual: [1, 2, 3]\n    note: x\n"},
		{"not yaml", "samples: [\n"},
		{"nan", "samples:\n  - target: [1, 2]\n    actual: [1, 2, .nan]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, errors.ErrProbeFormat) {
				t.Errorf("expected probe format error, got %v", err)
			}
		})
	}
}

func TestReadEmpty(t *testing.T) {
	c, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
