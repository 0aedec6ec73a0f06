package kinematics

import (
	"fmt"
	"math/bits"
	"strings"
)

// Factor identifies one scalar geometry parameter that a calibration can fit.
// The numeric order is the order in which Adjust consumes deltas.
type Factor int

const (
	EndstopA Factor = iota
	EndstopB
	EndstopC
	Radius
	TowerOffsetA
	TowerOffsetB
	RodLength
	StepsPerUnitA
	StepsPerUnitB
	StepsPerUnitC
	RadiusAdjustA
	RadiusAdjustB
	RadiusAdjustC
	RodLengthAdjustA
	RodLengthAdjustB
	RodLengthAdjustC

	// NumFactors is the size of the factor table.
	NumFactors = 16
)

var factorNames = [NumFactors]string{
	"endstop_a", "endstop_b", "endstop_c",
	"radius",
	"tower_offset_a", "tower_offset_b",
	"rod_length",
	"steps_per_unit_a", "steps_per_unit_b", "steps_per_unit_c",
	"radius_adjust_a", "radius_adjust_b", "radius_adjust_c",
	"rod_length_adjust_a", "rod_length_adjust_b", "rod_length_adjust_c",
}

var factorUnits = [NumFactors]string{
	"steps", "steps", "steps",
	"mm",
	"deg", "deg",
	"mm",
	"steps/mm", "steps/mm", "steps/mm",
	"mm", "mm", "mm",
	"mm", "mm", "mm",
}

// String returns the factor's configuration name.
func (f Factor) String() string {
	if f < 0 || f >= NumFactors {
		return fmt.Sprintf("factor(%d)", int(f))
	}
	return factorNames[f]
}

// Unit returns the unit deltas for this factor are expressed in.
func (f Factor) Unit() string {
	if f < 0 || f >= NumFactors {
		return ""
	}
	return factorUnits[f]
}

// Tower returns the tower index a per-tower factor applies to, or -1.
func (f Factor) Tower() int {
	switch f {
	case EndstopA, TowerOffsetA, StepsPerUnitA, RadiusAdjustA, RodLengthAdjustA:
		return 0
	case EndstopB, TowerOffsetB, StepsPerUnitB, RadiusAdjustB, RodLengthAdjustB:
		return 1
	case EndstopC, StepsPerUnitC, RadiusAdjustC, RodLengthAdjustC:
		return 2
	}
	return -1
}

// ParseFactor looks a factor up by name.
func ParseFactor(name string) (Factor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range factorNames {
		if n == name {
			return Factor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", name)
}

// FactorMask selects a subset of the factor table; bit i selects Factor(i).
type FactorMask uint16

// AllFactors selects every factor.
const AllFactors FactorMask = 1<<NumFactors - 1

// MaskOf builds a mask from individual factors.
func MaskOf(factors ...Factor) FactorMask {
	var m FactorMask
	return m.With(factors...)
}

// Has reports whether f is selected.
func (m FactorMask) Has(f Factor) bool {
	return f >= 0 && f < NumFactors && m&(1<<uint(f)) != 0
}

// With returns m with the given factors added.
func (m FactorMask) With(factors ...Factor) FactorMask {
	for _, f := range factors {
		m |= 1 << uint(f)
	}
	return m
}

// Without returns m with the given factors removed.
func (m FactorMask) Without(factors ...Factor) FactorMask {
	for _, f := range factors {
		m &^= 1 << uint(f)
	}
	return m
}

// Count returns the number of selected factors.
func (m FactorMask) Count() int {
	return bits.OnesCount16(uint16(m))
}

// Factors lists the selected factors in table order.
func (m FactorMask) Factors() []Factor {
	out := make([]Factor, 0, m.Count())
	for f := Factor(0); f < NumFactors; f++ {
		if m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// String joins the selected factor names with commas.
func (m FactorMask) String() string {
	if m == 0 {
		return "none"
	}
	fs := m.Factors()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// ParseFactorMask parses a comma separated list of factor names. "all"
// selects the whole table and "none" or an empty string selects nothing.
func ParseFactorMask(s string) (FactorMask, error) {
	var m FactorMask
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "", "none":
			continue
		case "all":
			m = AllFactors
			continue
		}
		f, err := ParseFactor(part)
		if err != nil {
			return 0, err
		}
		m = m.With(f)
	}
	return m, nil
}
