package simulate

import (
	"math/rand/v2"

	"deltacal/pkg/kinematics"
)

// Jitter returns a copy of p with the rod length, radius, tower offsets and
// rod adjustments moved by up to amount either way, and each endstop offset
// raised by up to amount. Height, steps per unit and radius adjustments are
// left alone. It models a machine whose firmware settings are slightly off.
func Jitter(p kinematics.Params, amount float64, rng *rand.Rand) kinematics.Params {
	sym := func() float64 { return amount * (1 - 2*rng.Float64()) }

	p.RodLength += sym()
	p.Radius += sym()
	for t := 0; t < 3; t++ {
		p.EndstopOffset[t] += amount * rng.Float64()
		p.TowerOffset[t] += sym()
		p.RodLengthAdjust[t] += sym()
	}
	return p
}

// NewRand returns a generator seeded with seed, so simulated runs repeat.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
