package config

import (
	"strings"

	"deltacal/pkg/calibrate"
	"deltacal/pkg/kinematics"
	"deltacal/pkg/simulate"
)

// Section names read by the calibrator.
const (
	GeometrySection    = "delta_geometry"
	CalibrationSection = "calibration"
	SimulationSection  = "simulation"
)

// DefaultFactors is the factor selection used when [calibration] does not
// name one.
const DefaultFactors = "endstop_offset, tower_offset, rod_length, radius"

// LoadGeometry reads [delta_geometry] and builds the machine geometry.
func (c *Config) LoadGeometry() (kinematics.Geometry, error) {
	sec, err := c.GetSection(GeometrySection)
	if err != nil {
		return kinematics.Geometry{}, err
	}
	p, err := readParams(sec, kinematics.DefaultParams(), true)
	if err != nil {
		return kinematics.Geometry{}, err
	}
	g, err := kinematics.NewGeometry(p)
	if err != nil {
		return kinematics.Geometry{}, WrapError(GeometrySection, "", err)
	}
	return g, nil
}

// readParams reads geometry options over base. When required is set the
// rod length, radius and height must be present.
func readParams(sec *Section, base kinematics.Params, required bool) (kinematics.Params, error) {
	p := base
	var err error

	scalars := []struct {
		option string
		dst    *float64
		bounds FloatBounds
	}{
		{"rod_length", &p.RodLength, Above(0)},
		{"radius", &p.Radius, Above(0)},
		{"height", &p.Height, FloatBounds{}},
	}
	for _, s := range scalars {
		if required {
			*s.dst, err = sec.GetFloatWithBounds(s.option, s.bounds)
		} else {
			*s.dst, err = sec.GetFloatWithBounds(s.option, s.bounds, *s.dst)
		}
		if err != nil {
			return p, err
		}
	}

	towers := []struct {
		option string
		dst    *[3]float64
	}{
		{"endstop_offset", &p.EndstopOffset},
		{"tower_offset", &p.TowerOffset},
		{"steps_per_unit", &p.StepsPerUnit},
		{"radius_adjust", &p.RadiusAdjust},
		{"rod_length_adjust", &p.RodLengthAdjust},
	}
	for _, t := range towers {
		if *t.dst, err = sec.GetTowerFloats(t.option, *t.dst); err != nil {
			return p, err
		}
	}
	for _, spu := range p.StepsPerUnit {
		if spu <= 0 {
			return p, ErrOutOfRange(sec.GetName(), "steps_per_unit", spu, "must be above 0")
		}
	}
	return p, nil
}

// CalibrationSettings is the [calibration] section.
type CalibrationSettings struct {
	Mask    kinematics.FactorMask
	Options calibrate.Options

	// Speculative lists alternative factor selections to compare.
	Speculative []kinematics.FactorMask

	// Save writes a successful fit back into the config without --save.
	Save bool
}

// LoadCalibration reads [calibration]. A missing section yields the
// default factor selection and engine options.
func (c *Config) LoadCalibration() (CalibrationSettings, error) {
	cs := CalibrationSettings{Options: calibrate.DefaultOptions()}
	sec := c.GetSectionOptional(CalibrationSection)
	if sec == nil {
		mask, err := calibrate.ParseSelection(DefaultFactors)
		cs.Mask = mask
		return cs, err
	}

	factors, err := sec.Get("factors", DefaultFactors)
	if err != nil {
		return cs, err
	}
	if cs.Mask, err = calibrate.ParseSelection(factors); err != nil {
		return cs, WrapError(CalibrationSection, "factors", err)
	}
	if cs.Mask == 0 {
		return cs, NewConfigError(CalibrationSection, "factors", "no factors selected")
	}

	if cs.Options.Perturbation, err = sec.GetFloatWithBounds("perturbation", Above(0), cs.Options.Perturbation); err != nil {
		return cs, err
	}
	one := 1
	if cs.Options.MaxStall, err = sec.GetIntWithBounds("max_stall", &one, nil, cs.Options.MaxStall); err != nil {
		return cs, err
	}
	if cs.Options.MaxIterations, err = sec.GetIntWithBounds("max_iterations", &one, nil, cs.Options.MaxIterations); err != nil {
		return cs, err
	}

	if cs.Save, err = sec.GetBool("autosave", false); err != nil {
		return cs, err
	}

	specs, err := sec.GetList("speculative", ";", nil)
	if err != nil {
		return cs, err
	}
	for _, spec := range specs {
		mask, err := calibrate.ParseSelection(spec)
		if err != nil {
			return cs, WrapError(CalibrationSection, "speculative", err)
		}
		if mask == 0 {
			return cs, NewConfigError(CalibrationSection, "speculative",
				"empty selection in '"+strings.TrimSpace(spec)+"'")
		}
		cs.Speculative = append(cs.Speculative, mask)
	}
	return cs, nil
}

// SimulationSettings is the [simulation] section.
type SimulationSettings struct {
	Points      int
	ProbeRadius float64

	// Pattern is one of simulate.Patterns.
	Pattern string

	// Truth is the geometry the simulated machine really has.
	Truth kinematics.Params

	// Jitter randomly perturbs Truth by up to this much; zero disables it.
	Jitter float64
	Seed   uint64
}

// LoadSimulation reads [simulation]. Geometry options in the section
// override the assumed geometry to form the true one.
func (c *Config) LoadSimulation(assumed kinematics.Params) (SimulationSettings, error) {
	ss := SimulationSettings{
		Points:      50,
		ProbeRadius: 150,
		Pattern:     simulate.PatternSpiral,
		Truth:       assumed,
		Seed:        1,
	}
	sec := c.GetSectionOptional(SimulationSection)
	if sec == nil {
		return ss, nil
	}

	var err error
	one := 1
	if ss.Points, err = sec.GetIntWithBounds("points", &one, nil, ss.Points); err != nil {
		return ss, err
	}
	if ss.ProbeRadius, err = sec.GetFloatWithBounds("probe_radius", Above(0), ss.ProbeRadius); err != nil {
		return ss, err
	}
	if ss.Pattern, err = sec.GetChoice("pattern", simulate.Patterns, ss.Pattern); err != nil {
		return ss, err
	}
	if ss.Jitter, err = sec.GetFloatWithBounds("jitter", AtLeast(0), 0); err != nil {
		return ss, err
	}
	seed, err := sec.GetIntWithBounds("seed", new(int), nil, int(ss.Seed))
	if err != nil {
		return ss, err
	}
	ss.Seed = uint64(seed)

	if ss.Truth, err = readParams(sec, assumed, false); err != nil {
		return ss, err
	}
	return ss, nil
}
