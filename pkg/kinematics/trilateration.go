package kinematics

import (
	"math"

	"github.com/golang/geo/r3"

	"deltacal/pkg/errors"
)

// Below this the spheres are treated as coincident or collinear.
const layoutEpsilon = 1e-9

// trilaterate finds the intersection of three spheres with centres c and
// radii r. Of the two intersection points the one with the lower Z
// coordinate is returned; for a delta machine that is the effector hanging
// below the carriages, whichever way the towers are ordered.
func trilaterate(c [3]r3.Vector, r [3]float64) (r3.Vector, error) {
	s21 := c[1].Sub(c[0])
	s31 := c[2].Sub(c[0])

	d := s21.Norm()
	if d < layoutEpsilon {
		return r3.Vector{}, errors.LayoutError("first two spheres share a centre")
	}
	ex := s21.Mul(1 / d)
	i := ex.Dot(s31)

	vectEy := s31.Sub(ex.Mul(i))
	eyMag := vectEy.Norm()
	if eyMag < layoutEpsilon {
		return r3.Vector{}, errors.LayoutError("sphere centres are collinear")
	}
	ey := vectEy.Mul(1 / eyMag)
	ez := ex.Cross(ey)
	j := ey.Dot(s31)

	r1, r2, r3sq := r[0]*r[0], r[1]*r[1], r[2]*r[2]

	// Coordinates in the frame spanned by ex, ey, ez with c[0] at the origin.
	x := (r1 - r2 + d*d) / (2 * d)
	y := (r1 - r3sq + i*i + j*j - 2*i*x) / (2 * j)
	base := c[0].Add(ex.Mul(x)).Add(ey.Mul(y))
	z2 := r1 - x*x - y*y
	if z2 < 0 || math.IsNaN(z2) {
		return r3.Vector{}, errors.ReachabilityError("carriage position", base.X, base.Y, base.Z)
	}
	z := math.Sqrt(z2)

	p1 := base.Add(ez.Mul(z))
	p2 := base.Sub(ez.Mul(z))
	if p2.Z < p1.Z {
		return p2, nil
	}
	return p1, nil
}
