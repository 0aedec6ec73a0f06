package simulate

import (
	"math"
	"testing"

	"deltacal/pkg/kinematics"
)

func geometry(t *testing.T, rod, radius float64) kinematics.Geometry {
	t.Helper()
	g, err := kinematics.NewGeometry(kinematics.Params{
		RodLength:    rod,
		Radius:       radius,
		Height:       300,
		StepsPerUnit: [3]float64{400, 400, 400},
	})
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	return g
}

func TestProbeMatchingGeometry(t *testing.T) {
	g := geometry(t, 330, 165)
	m := NewMachine(g, g)

	for _, p := range SpiralPoints(20, 150) {
		s, err := m.Probe(p[0], p[1])
		if err != nil {
			t.Fatalf("Probe(%v): %v", p, err)
		}
		if math.Abs(s.Error()) > 1e-9 {
			t.Errorf("Probe(%v) error = %g, want 0", p, s.Error())
		}
		if math.Abs(s.Actual.X-p[0]) > 1e-9 || math.Abs(s.Actual.Y-p[1]) > 1e-9 {
			t.Errorf("Probe(%v) reported %v", p, s.Actual)
		}
	}
}

func TestProbeMismatchedGeometry(t *testing.T) {
	actual := geometry(t, 331, 166)
	assumed := geometry(t, 330, 165)
	m := NewMachine(actual, assumed)

	centre, err := m.Probe(0, 0)
	if err != nil {
		t.Fatalf("Probe centre: %v", err)
	}
	edge, err := m.Probe(150, 0)
	if err != nil {
		t.Fatalf("Probe edge: %v", err)
	}
	if math.Abs(centre.Error()-edge.Error()) < 1e-3 {
		t.Errorf("expected a bowl shaped error, centre %g edge %g", centre.Error(), edge.Error())
	}

	// The reported point, driven through the true geometry, sits on the bed.
	carriages, err := assumed.ForwardKinematics(centre.Actual)
	if err != nil {
		t.Fatalf("ForwardKinematics: %v", err)
	}
	z, err := actual.ZAt(carriages)
	if err != nil {
		t.Fatalf("ZAt: %v", err)
	}
	if math.Abs(z) > 1e-9 {
		t.Errorf("true height at trigger = %g, want 0", z)
	}
}

func TestProbeAll(t *testing.T) {
	m := NewMachine(geometry(t, 331, 166), geometry(t, 330, 165))
	points := SpiralPoints(12, 120)

	c, err := m.ProbeAll(points)
	if err != nil {
		t.Fatalf("ProbeAll: %v", err)
	}
	if c.Len() != len(points) {
		t.Fatalf("Len() = %d, want %d", c.Len(), len(points))
	}
	for i, s := range c.Samples() {
		if s.TargetX != points[i][0] || s.TargetY != points[i][1] {
			t.Errorf("sample %d target (%v, %v), want %v", i, s.TargetX, s.TargetY, points[i])
		}
	}
	if c.RMS() == 0 {
		t.Error("expected nonzero RMS for mismatched geometry")
	}
}

func TestProbeUnreachable(t *testing.T) {
	g := geometry(t, 330, 165)
	m := NewMachine(g, g)
	if _, err := m.Probe(1000, 0); err == nil {
		t.Error("expected error probing outside the envelope")
	}
}

func TestSpiralPoints(t *testing.T) {
	const n, radius = 50, 150.0
	points := SpiralPoints(n, radius)
	if len(points) != n {
		t.Fatalf("len = %d, want %d", len(points), n)
	}
	if points[0] != [2]float64{0, 0} {
		t.Errorf("first point = %v, want origin", points[0])
	}

	prev := -1.0
	for i, p := range points {
		r := math.Hypot(p[0], p[1])
		if r > radius {
			t.Errorf("point %d at radius %g beyond %g", i, r, radius)
		}
		if r <= prev {
			t.Errorf("point %d radius %g not increasing", i, r)
		}
		prev = r
	}
	want := radius * math.Sqrt(float64(n-1)/n)
	if math.Abs(prev-want) > 1e-9 {
		t.Errorf("outermost radius = %g, want %g", prev, want)
	}

	if SpiralPoints(0, radius) != nil {
		t.Error("expected nil for zero points")
	}
}

func TestJitter(t *testing.T) {
	base := kinematics.Params{
		RodLength:    330,
		Radius:       165,
		Height:       300,
		StepsPerUnit: [3]float64{400, 400, 400},
	}
	a := Jitter(base, 1, NewRand(7))
	b := Jitter(base, 1, NewRand(7))
	if a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
	if a == base {
		t.Error("jitter left the parameters unchanged")
	}
	if math.Abs(a.RodLength-330) > 1 || math.Abs(a.Radius-165) > 1 {
		t.Errorf("rod %g radius %g outside +/-1", a.RodLength, a.Radius)
	}
	for i := 0; i < 3; i++ {
		if a.EndstopOffset[i] < 0 || a.EndstopOffset[i] > 1 {
			t.Errorf("endstop %d = %g outside [0,1]", i, a.EndstopOffset[i])
		}
	}
	if a.Height != base.Height || a.StepsPerUnit != base.StepsPerUnit {
		t.Error("height or steps per unit changed")
	}
	if _, err := kinematics.NewGeometry(a); err != nil {
		t.Errorf("jittered parameters invalid: %v", err)
	}
}

func TestRingPoints(t *testing.T) {
	tests := []struct {
		n     int
		outer float64
	}{
		{1, 0},
		{7, 150},
		{19, 150},
		{25, 150},
	}
	for _, tt := range tests {
		points := RingPoints(tt.n, 150)
		if len(points) != tt.n {
			t.Fatalf("RingPoints(%d) returned %d points", tt.n, len(points))
		}
		if points[0] != [2]float64{0, 0} {
			t.Errorf("RingPoints(%d) starts at %v, want the centre", tt.n, points[0])
		}
		last := points[len(points)-1]
		if r := math.Hypot(last[0], last[1]); math.Abs(r-tt.outer) > 1e-9 {
			t.Errorf("RingPoints(%d) outer radius %g, want %g", tt.n, r, tt.outer)
		}
	}

	// The first ring of 19 points sits at half the radius, starting at 90 degrees.
	p := RingPoints(19, 150)[1]
	if math.Abs(p[0]) > 1e-9 || math.Abs(p[1]-75) > 1e-9 {
		t.Errorf("first ring point = %v, want (0, 75)", p)
	}
	if RingPoints(0, 150) != nil {
		t.Error("RingPoints(0) should be nil")
	}
}

func TestPoints(t *testing.T) {
	for _, pattern := range Patterns {
		points, err := Points(pattern, 10, 100)
		if err != nil {
			t.Fatalf("Points(%s): %v", pattern, err)
		}
		if len(points) != 10 {
			t.Errorf("Points(%s) returned %d points", pattern, len(points))
		}
	}
	if _, err := Points("grid", 10, 100); err == nil {
		t.Error("expected an error for an unknown pattern")
	}
}
