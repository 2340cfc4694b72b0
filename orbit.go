package eclipse

import (
	"fmt"
	"math"
)

// CircularOrbit is a fixed circular Keplerian orbit used to prescribe the motion of an
// auxiliary body.
type CircularOrbit struct {
	a      float64   // Orbit radius
	ω      float64   // Angular rate
	i      float64   // Inclination
	Ω      float64   // Longitude of the ascending node
	θ0     float64   // Argument of latitude at t = 0
	Center []float64 // Fixed position of the central body, nil means the origin.
}

// NewCircularOrbit derives a circular orbit from an initial position and velocity relative
// to a central body of gravitational parameter μ.
// The caller guarantees that (r0, v0) describe a (near) circular orbit; eccentricity is not checked.
// Precondition: r0 x v0 must not be the zero vector. A radial state yields NaN elements
// and thus NaN positions.
func NewCircularOrbit(r0, v0 []float64, μ float64) CircularOrbit {
	h := cross(r0, v0)
	hNorm := norm(h)
	n := []float64{h[0] / hNorm, h[1] / hNorm, h[2] / hNorm}
	i := math.Acos(n[2])
	Ω := math.Atan2(n[0], -n[1])
	r := norm(r0)
	v := norm(v0)
	// Vis-viva.
	a := 1 / (2/r - v*v/μ)
	ω := math.Sqrt(μ / (a * a * a))
	// Project r0 on the node line and its in-plane normal: for i != 0 the second projection
	// is z/sin(i), and this form still holds for equatorial orbits.
	sΩ, cΩ := math.Sincos(Ω)
	node := []float64{cΩ, sΩ, 0}
	θ0 := math.Atan2(dot(r0, cross(n, node)), dot(r0, node))
	return CircularOrbit{a: a, ω: ω, i: i, Ω: Ω, θ0: θ0}
}

// Elements returns the radius, angular rate, inclination, node longitude and initial phase.
func (o CircularOrbit) Elements() (a, ω, i, Ω, θ0 float64) {
	return o.a, o.ω, o.i, o.Ω, o.θ0
}

// Period returns the orbital period in time units.
func (o CircularOrbit) Period() float64 {
	return 2 * math.Pi / o.ω
}

// Position returns the position at time t (in time units since the initial state).
func (o CircularOrbit) Position(t float64) []float64 {
	θ := o.θ0 + o.ω*t
	R := Rot313Vec(o.Ω, o.i, θ, []float64{o.a, 0, 0})
	if o.Center != nil {
		for k := range R {
			R[k] += o.Center[k]
		}
	}
	return R
}

// String implements the Stringer interface.
func (o CircularOrbit) String() string {
	return fmt.Sprintf("a=%.6f ω=%.6e i=%.3f Ω=%.3f θ0=%.3f", o.a, o.ω, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.θ0))
}
