package eclipse

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	deg2rad = math.Pi / 180
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Norm returns the Euclidean norm of a 3x1 vector.
func Norm(v []float64) float64 {
	return norm(v)
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	floats.ScaleTo(b, 1/n, a)
	return
}

// dot performs the inner product.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]} // Cross product R x V.
}

// Cross returns a x b.
func Cross(a, b []float64) []float64 {
	return cross(a, b)
}

// sub returns a - b as a new vector.
func sub(a, b []float64) []float64 {
	o := make([]float64, len(a))
	floats.SubTo(o, a, b)
	return o
}

// scaled returns s*a as a new vector.
func scaled(s float64, a []float64) []float64 {
	o := make([]float64, len(a))
	floats.ScaleTo(o, s, a)
	return o
}

// lerp returns (1-f)*a + f*b, i.e. the secant point at fraction f from a to b.
func lerp(a, b []float64, f float64) []float64 {
	o := scaled(1-f, a)
	floats.AddScaled(o, f, b)
	return o
}

// finite returns whether all components are neither NaN nor infinite.
func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// Spherical2Cartesian returns the Cartesian vector of r, longitude λ and latitude β
// (angles in radians).
func Spherical2Cartesian(r, λ, β float64) []float64 {
	sλ, cλ := math.Sincos(λ)
	sβ, cβ := math.Sincos(β)
	return []float64{r * cβ * cλ, r * cβ * sλ, r * sβ}
}
