// Package simulate stands in for a physical machine when generating or
// testing calibration data.
package simulate

import (
	"math"

	"github.com/golang/geo/r3"

	"deltacal/pkg/errors"
	"deltacal/pkg/kinematics"
	"deltacal/pkg/probe"
)

const (
	// Tolerance for the true bed height at a simulated trigger.
	triggerTolerance = 1e-10

	// MaxProbeAttempts bounds the trigger search at one location.
	MaxProbeAttempts = 100
)

// Machine probes a bed whose true geometry is Actual while the firmware
// believes it is Assumed.
type Machine struct {
	Actual  kinematics.Geometry
	Assumed kinematics.Geometry
}

// NewMachine returns a machine with the given true and assumed geometries.
func NewMachine(actual, assumed kinematics.Geometry) *Machine {
	return &Machine{Actual: actual, Assumed: assumed}
}

// Probe lowers the effector at (x, y) until it touches the true bed and
// reports where the assumed geometry thinks it stopped.
func (m *Machine) Probe(x, y float64) (probe.Sample, error) {
	targetZ := 0.0
	for attempt := 0; attempt < MaxProbeAttempts; attempt++ {
		carriages, err := m.Assumed.ForwardKinematics(r3.Vector{X: x, Y: y, Z: targetZ})
		if err != nil {
			return probe.Sample{}, err
		}
		touched, err := m.Actual.InverseKinematics(carriages)
		if err != nil {
			return probe.Sample{}, err
		}
		if math.Abs(touched.Z) < triggerTolerance {
			reported, err := m.Assumed.InverseKinematics(carriages)
			if err != nil {
				return probe.Sample{}, err
			}
			return probe.NewSample(x, y, reported), nil
		}
		targetZ -= touched.Z
	}
	return probe.Sample{}, errors.ProbeSearchError(x, y, MaxProbeAttempts)
}

// ProbeAll probes each point in order.
func (m *Machine) ProbeAll(points [][2]float64) (*probe.Collection, error) {
	c := probe.NewCollection()
	for _, p := range points {
		s, err := m.Probe(p[0], p[1])
		if err != nil {
			return nil, err
		}
		c.Append(s)
	}
	return c, nil
}
