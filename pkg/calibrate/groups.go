// Factor groups
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package calibrate

import (
	"fmt"
	"strings"

	"deltacal/pkg/kinematics"
)

// Groups are the coarse toggles a user picks from. Each maps onto one or
// more factors of the mask.
type Groups struct {
	Endstops        bool
	TowerOffsets    bool
	RodLength       bool
	RodLengthAdjust bool
	Radius          bool
	RadiusAdjust    bool
	StepsPerUnit    bool
}

var groupNames = []string{
	"endstop_offset",
	"tower_offset",
	"rod_length",
	"rod_length_adjust",
	"radius",
	"radius_adjust",
	"steps_per_unit",
}

func (g *Groups) field(name string) *bool {
	switch name {
	case "endstop_offset":
		return &g.Endstops
	case "tower_offset":
		return &g.TowerOffsets
	case "rod_length":
		return &g.RodLength
	case "rod_length_adjust":
		return &g.RodLengthAdjust
	case "radius":
		return &g.Radius
	case "radius_adjust":
		return &g.RadiusAdjust
	case "steps_per_unit":
		return &g.StepsPerUnit
	}
	return nil
}

// GroupNames lists the accepted group names.
func GroupNames() []string {
	return append([]string(nil), groupNames...)
}

// ParseGroups parses a comma separated list of group names.
func ParseGroups(s string) (Groups, error) {
	var g Groups
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		p := g.field(name)
		if p == nil {
			return Groups{}, fmt.Errorf("unknown factor group %q", name)
		}
		*p = true
	}
	return g, nil
}

// IsGroupName reports whether name is a group rather than a single factor.
func IsGroupName(name string) bool {
	var g Groups
	return g.field(strings.ToLower(strings.TrimSpace(name))) != nil
}

// Mask returns the factors selected by the groups.
//
// A per-tower adjustment fitted alongside its shared counterpart loses its
// third tower: radius plus three radius adjustments (and rod length plus
// three rod adjustments) describe the same geometry with one degree of
// freedom to spare.
func (g Groups) Mask() kinematics.FactorMask {
	var m kinematics.FactorMask
	if g.Endstops {
		m = m.With(kinematics.EndstopA, kinematics.EndstopB, kinematics.EndstopC)
	}
	if g.Radius {
		m = m.With(kinematics.Radius)
	}
	if g.TowerOffsets {
		m = m.With(kinematics.TowerOffsetA, kinematics.TowerOffsetB)
	}
	if g.RodLength {
		m = m.With(kinematics.RodLength)
	}
	if g.StepsPerUnit {
		m = m.With(kinematics.StepsPerUnitA, kinematics.StepsPerUnitB, kinematics.StepsPerUnitC)
	}
	if g.RadiusAdjust {
		m = m.With(kinematics.RadiusAdjustA, kinematics.RadiusAdjustB)
		if !g.Radius {
			m = m.With(kinematics.RadiusAdjustC)
		}
	}
	if g.RodLengthAdjust {
		m = m.With(kinematics.RodLengthAdjustA, kinematics.RodLengthAdjustB)
		if !g.RodLength {
			m = m.With(kinematics.RodLengthAdjustC)
		}
	}
	return m
}

// String lists the enabled groups.
func (g Groups) String() string {
	var on []string
	for _, name := range groupNames {
		if *g.field(name) {
			on = append(on, name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}

// ParseSelection parses a comma separated list mixing group names and
// single factor names into a mask.
func ParseSelection(s string) (kinematics.FactorMask, error) {
	var groups, factors []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if IsGroupName(part) {
			groups = append(groups, part)
		} else {
			factors = append(factors, part)
		}
	}
	g, err := ParseGroups(strings.Join(groups, ","))
	if err != nil {
		return 0, err
	}
	m, err := kinematics.ParseFactorMask(strings.Join(factors, ","))
	if err != nil {
		return 0, err
	}
	return g.Mask() | m, nil
}
