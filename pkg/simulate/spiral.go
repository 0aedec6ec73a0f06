package simulate

import (
	"fmt"
	"math"
)

// Probe point layouts accepted by Points.
const (
	PatternSpiral = "spiral"
	PatternRings  = "rings"
)

// Patterns lists the layouts Points accepts.
var Patterns = []string{PatternSpiral, PatternRings}

// Points returns n probe points of the named layout within radius.
func Points(pattern string, n int, radius float64) ([][2]float64, error) {
	switch pattern {
	case PatternSpiral:
		return SpiralPoints(n, radius), nil
	case PatternRings:
		return RingPoints(n, radius), nil
	}
	return nil, fmt.Errorf("simulate: unknown probe pattern %q", pattern)
}

// SpiralPoints returns n points on an Archimedean spiral of the given
// radius, spaced at roughly equal arc length starting from the centre.
func SpiralPoints(n int, radius float64) [][2]float64 {
	if n <= 0 {
		return nil
	}
	a := radius / (2 * math.Sqrt(float64(n)*math.Pi))
	step := radius * radius / (2 * a * float64(n))

	points := make([][2]float64, n)
	for i := range points {
		angle := math.Sqrt(2 * float64(i) * step / a)
		r := angle * a
		points[i] = [2]float64{r * math.Cos(angle), r * math.Sin(angle)}
	}
	return points
}

// RingPoints returns the centre followed by concentric rings of 6, 12, 18...
// points, each ring starting at 90 degrees. The outermost ring lies on
// radius and holds whatever points remain.
func RingPoints(n int, radius float64) [][2]float64 {
	if n <= 0 {
		return nil
	}
	rings := 0
	for 1+3*rings*(rings+1) < n {
		rings++
	}

	points := make([][2]float64, 0, n)
	points = append(points, [2]float64{0, 0})
	for k := 1; k <= rings; k++ {
		count := min(6*k, n-len(points))
		dist := radius * float64(k) / float64(rings)
		for i := 0; i < count; i++ {
			a := math.Pi/2 + 2*math.Pi*float64(i)/float64(count)
			points = append(points, [2]float64{dist * math.Cos(a), dist * math.Sin(a)})
		}
	}
	return points
}
