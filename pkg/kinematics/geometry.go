// Package kinematics models the geometry of a linear delta machine: three
// vertical towers whose carriages hold the effector on fixed-length rods.
//
// Geometry converts between effector positions and actuator step counts and
// exposes the sixteen calibration factors that Adjust can perturb.
package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"deltacal/pkg/errors"
)

const degToRad = math.Pi / 180.0

// DefaultPerturbation is the central difference step used by
// NumericDerivative, in the factor's own unit.
const DefaultPerturbation = 0.2

// Params is the literal parameter set a Geometry is built from. Lengths are
// in mm, tower offsets in degrees.
type Params struct {
	RodLength       float64    `yaml:"rod_length"`
	Radius          float64    `yaml:"radius"`
	Height          float64    `yaml:"height"`
	EndstopOffset   [3]float64 `yaml:"endstop_offset"`
	TowerOffset     [3]float64 `yaml:"tower_offset"`
	StepsPerUnit    [3]float64 `yaml:"steps_per_unit"`
	RadiusAdjust    [3]float64 `yaml:"radius_adjust"`
	RodLengthAdjust [3]float64 `yaml:"rod_length_adjust"`
}

// DefaultParams returns a parameter set with every adjustment zero and unit
// step scaling.
func DefaultParams() Params {
	return Params{StepsPerUnit: [3]float64{1, 1, 1}}
}

// Geometry is a delta machine configuration with its derived tower layout.
//
// Geometry is a value: assigning or passing it copies every field, so a copy
// can be adjusted without the original observing it.
type Geometry struct {
	rod          float64
	radius       float64
	rodAdjust    [3]float64
	radiusAdjust [3]float64
	towerOffset  [3]float64
	stepsPerUnit [3]float64

	// Canonical values; the mm fields below are derived from these.
	endstopSteps [3]float64
	heightSteps  float64

	endstopMM [3]float64
	heightMM  float64

	towers     [3]r3.Vector
	towerSteps [3]float64
}

// NewGeometry builds a Geometry from p. Endstop offsets are normalised so
// the smallest is zero, with the difference folded into the height.
func NewGeometry(p Params) (Geometry, error) {
	if err := validate(p); err != nil {
		return Geometry{}, err
	}

	g := Geometry{
		rod:          p.RodLength,
		radius:       p.Radius,
		rodAdjust:    p.RodLengthAdjust,
		radiusAdjust: p.RadiusAdjust,
		towerOffset:  p.TowerOffset,
		stepsPerUnit: p.StepsPerUnit,
		heightSteps:  p.Height * p.StepsPerUnit[0],
	}
	for t := 0; t < 3; t++ {
		g.endstopSteps[t] = p.EndstopOffset[t] * p.StepsPerUnit[t]
	}

	if err := g.normalise(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func validate(p Params) error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.KinematicsError(fmt.Sprintf("%s is not finite", name))
		}
		return nil
	}
	scalars := []struct {
		name string
		v    float64
	}{
		{"rod_length", p.RodLength},
		{"radius", p.Radius},
		{"height", p.Height},
	}
	for _, s := range scalars {
		if err := check(s.name, s.v); err != nil {
			return err
		}
	}
	for t := 0; t < 3; t++ {
		for _, s := range []struct {
			name string
			v    float64
		}{
			{"endstop_offset", p.EndstopOffset[t]},
			{"tower_offset", p.TowerOffset[t]},
			{"steps_per_unit", p.StepsPerUnit[t]},
			{"radius_adjust", p.RadiusAdjust[t]},
			{"rod_length_adjust", p.RodLengthAdjust[t]},
		} {
			if err := check(s.name, s.v); err != nil {
				return err
			}
		}
		if p.StepsPerUnit[t] <= 0 {
			return errors.KinematicsError(fmt.Sprintf("steps_per_unit[%d] must be positive, got %g", t, p.StepsPerUnit[t]))
		}
		if p.RodLength+p.RodLengthAdjust[t] <= 0 {
			return errors.KinematicsError(fmt.Sprintf("rod length of tower %d must be positive", t))
		}
	}
	return nil
}

// Clone returns an independent copy of g.
func (g Geometry) Clone() Geometry {
	return g
}

// RecomputeGeometry derives the tower positions, the mm endstop offsets and
// height, and each tower's step count with the effector at the origin. It
// fails if the origin is out of reach of any rod.
func (g *Geometry) RecomputeGeometry() error {
	for t := 0; t < 3; t++ {
		if g.stepsPerUnit[t] == 0 || math.IsNaN(g.stepsPerUnit[t]) {
			return errors.KinematicsError(fmt.Sprintf("steps_per_unit[%d] is %g", t, g.stepsPerUnit[t]))
		}
	}

	ra := g.radius + g.radiusAdjust[0]
	rb := g.radius + g.radiusAdjust[1]
	rc := g.radius + g.radiusAdjust[2]
	g.towers = [3]r3.Vector{
		{X: -ra * math.Cos((30+g.towerOffset[0])*degToRad), Y: -ra * math.Sin((30+g.towerOffset[0])*degToRad)},
		{X: rb * math.Cos((30-g.towerOffset[1])*degToRad), Y: -rb * math.Sin((30-g.towerOffset[1])*degToRad)},
		{X: -rc * math.Sin(g.towerOffset[2]*degToRad), Y: rc * math.Cos(g.towerOffset[2]*degToRad)},
	}

	g.heightMM = g.heightSteps / g.stepsPerUnit[0]
	for t := 0; t < 3; t++ {
		g.endstopMM[t] = g.endstopSteps[t] / g.stepsPerUnit[t]
	}

	for t := 0; t < 3; t++ {
		cone, err := g.ConeHeight(r3.Vector{}, t)
		if err != nil {
			return err
		}
		g.towerSteps[t] = (g.endstopMM[t] + g.heightMM + cone) * g.stepsPerUnit[t]
	}
	return nil
}

// normalise recomputes, moves the smallest endstop offset into the height
// and recomputes again so the tower step counts reflect the new split.
func (g *Geometry) normalise() error {
	if err := g.RecomputeGeometry(); err != nil {
		return err
	}

	lowest := math.Min(g.endstopMM[0], math.Min(g.endstopMM[1], g.endstopMM[2]))
	g.heightMM += lowest
	for t := 0; t < 3; t++ {
		g.endstopMM[t] -= lowest
		g.endstopSteps[t] = g.endstopMM[t] * g.stepsPerUnit[t]
	}
	g.heightSteps = g.heightMM * g.stepsPerUnit[0]

	return g.RecomputeGeometry()
}

// rodLength returns the rod length of tower t including its adjustment.
func (g *Geometry) rodLength(t int) float64 {
	return g.rod + g.rodAdjust[t]
}

// ConeHeight returns the height of tower t's carriage above the bed when
// the effector is at p.
func (g *Geometry) ConeHeight(p r3.Vector, tower int) (float64, error) {
	if tower < 0 || tower > 2 {
		return 0, errors.KinematicsError(fmt.Sprintf("tower index %d out of range", tower))
	}
	rod := g.rodLength(tower)
	dx := p.X - g.towers[tower].X
	dy := p.Y - g.towers[tower].Y
	h := p.Z + math.Sqrt(rod*rod-dx*dx-dy*dy)
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, errors.ReachabilityError("effector position", p.X, p.Y, p.Z).
			SetContext("tower", tower)
	}
	return h, nil
}

// ForwardKinematics returns the actuator step counts that place the
// effector at p.
func (g *Geometry) ForwardKinematics(p r3.Vector) ([3]float64, error) {
	var steps [3]float64
	for t := 0; t < 3; t++ {
		cone, err := g.ConeHeight(p, t)
		if err != nil {
			return steps, err
		}
		steps[t] = g.towerSteps[t] - cone*g.stepsPerUnit[t]
	}
	return steps, nil
}

// InverseKinematics returns the effector position for the given actuator
// step counts. Of the two sphere intersections the lower one is returned.
func (g *Geometry) InverseKinematics(steps [3]float64) (r3.Vector, error) {
	var centres [3]r3.Vector
	var radii [3]float64
	for t := 0; t < 3; t++ {
		if math.IsNaN(steps[t]) || math.IsInf(steps[t], 0) {
			return r3.Vector{}, errors.KinematicsError(fmt.Sprintf("step count for tower %d is not finite", t))
		}
		centres[t] = r3.Vector{
			X: g.towers[t].X,
			Y: g.towers[t].Y,
			Z: (g.towerSteps[t] - steps[t]) / g.stepsPerUnit[t],
		}
		radii[t] = g.rodLength(t)
	}
	return trilaterate(centres, radii)
}

// ZAt returns only the Z component of InverseKinematics.
func (g *Geometry) ZAt(steps [3]float64) (float64, error) {
	p, err := g.InverseKinematics(steps)
	if err != nil {
		return 0, err
	}
	return p.Z, nil
}

// Adjust adds deltas to the factors selected by mask. Deltas are consumed in
// factor table order, one per selected factor. Afterwards the geometry is
// recomputed with its endstops normalised.
//
// On error g may be left partially updated; callers adjust a copy.
func (g *Geometry) Adjust(mask FactorMask, deltas []float64) error {
	if len(deltas) != mask.Count() {
		return errors.KinematicsError(fmt.Sprintf("adjust: %d deltas for %d selected factors", len(deltas), mask.Count()))
	}

	for i, f := range mask.Factors() {
		*g.factorRef(f) += deltas[i]
	}
	return g.normalise()
}

// factorRef returns the field backing f.
func (g *Geometry) factorRef(f Factor) *float64 {
	switch f {
	case EndstopA, EndstopB, EndstopC:
		return &g.endstopSteps[f-EndstopA]
	case Radius:
		return &g.radius
	case TowerOffsetA, TowerOffsetB:
		return &g.towerOffset[f-TowerOffsetA]
	case RodLength:
		return &g.rod
	case StepsPerUnitA, StepsPerUnitB, StepsPerUnitC:
		return &g.stepsPerUnit[f-StepsPerUnitA]
	case RadiusAdjustA, RadiusAdjustB, RadiusAdjustC:
		return &g.radiusAdjust[f-RadiusAdjustA]
	case RodLengthAdjustA, RodLengthAdjustB, RodLengthAdjustC:
		return &g.rodAdjust[f-RodLengthAdjustA]
	}
	panic(fmt.Sprintf("kinematics: invalid factor %d", int(f)))
}

// FactorValue returns the current value of f in its own unit, or NaN for
// an unknown factor.
func (g *Geometry) FactorValue(f Factor) float64 {
	if f < 0 || f >= NumFactors {
		return math.NaN()
	}
	return *g.factorRef(f)
}

// NumericDerivative returns dZ/df at the given step counts using a central
// difference of DefaultPerturbation.
func (g *Geometry) NumericDerivative(f Factor, steps [3]float64) (float64, error) {
	return g.Derivative(f, steps, DefaultPerturbation)
}

// Derivative returns dZ/df at the given step counts by adjusting two copies
// of g by +h and -h.
func (g *Geometry) Derivative(f Factor, steps [3]float64, h float64) (float64, error) {
	if f < 0 || f >= NumFactors {
		return 0, errors.KinematicsError(fmt.Sprintf("invalid factor %d", int(f)))
	}
	if !(h > 0) {
		return 0, errors.KinematicsError(fmt.Sprintf("perturbation must be positive, got %g", h))
	}

	zHi, err := g.perturbedZ(f, h, steps)
	if err != nil {
		return 0, err
	}
	zLo, err := g.perturbedZ(f, -h, steps)
	if err != nil {
		return 0, err
	}
	return (zHi - zLo) / (2 * h), nil
}

func (g *Geometry) perturbedZ(f Factor, delta float64, steps [3]float64) (float64, error) {
	c := g.Clone()
	if err := c.Adjust(MaskOf(f), []float64{delta}); err != nil {
		return 0, err
	}
	return c.ZAt(steps)
}

// Params returns the current parameters with lengths in mm.
func (g *Geometry) Params() Params {
	return Params{
		RodLength:       g.rod,
		Radius:          g.radius,
		Height:          g.heightMM,
		EndstopOffset:   g.endstopMM,
		TowerOffset:     g.towerOffset,
		StepsPerUnit:    g.stepsPerUnit,
		RadiusAdjust:    g.radiusAdjust,
		RodLengthAdjust: g.rodAdjust,
	}
}

// TowerPositions returns the XY position of each tower (Z is zero).
func (g *Geometry) TowerPositions() [3]r3.Vector {
	return g.towers
}

// TowerSteps returns each tower's step count with the effector at the origin.
func (g *Geometry) TowerSteps() [3]float64 {
	return g.towerSteps
}

// EndstopSteps returns the canonical endstop offsets in steps.
func (g *Geometry) EndstopSteps() [3]float64 {
	return g.endstopSteps
}

// HeightSteps returns the canonical home height in steps of tower A.
func (g *Geometry) HeightSteps() float64 {
	return g.heightSteps
}

// String summarises the main parameters.
func (g Geometry) String() string {
	return fmt.Sprintf("rod=%.4f radius=%.4f height=%.4f endstops=[%.4f %.4f %.4f] towers=[%.4f %.4f %.4f] steps=[%.3f %.3f %.3f]",
		g.rod, g.radius, g.heightMM,
		g.endstopMM[0], g.endstopMM[1], g.endstopMM[2],
		g.towerOffset[0], g.towerOffset[1], g.towerOffset[2],
		g.stepsPerUnit[0], g.stepsPerUnit[1], g.stepsPerUnit[2])
}
