package eclipse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rot313Vec rotates a vector expressed in the orbital frame into the reference frame
// for the node longitude Ω, inclination i and argument of latitude θ.
func Rot313Vec(Ω, i, θ float64, vI []float64) []float64 {
	return MxV33(R3R1R3(Ω, i, θ), vI)
}

// R3R1R3 performs a 3-1-3 Euler rotation R3(-θ1)·R1(-θ2)·R3(-θ3), i.e. the orbital-to-inertial
// direction cosine matrix.
func R3R1R3(θ1, θ2, θ3 float64) *mat.Dense {
	sθ1, cθ1 := math.Sincos(θ1)
	sθ2, cθ2 := math.Sincos(θ2)
	sθ3, cθ3 := math.Sincos(θ3)
	return mat.NewDense(3, 3, []float64{
		cθ1*cθ3 - sθ1*sθ3*cθ2, -cθ1*sθ3 - sθ1*cθ3*cθ2, sθ1 * sθ2,
		sθ1*cθ3 + cθ1*sθ3*cθ2, -sθ1*sθ3 + cθ1*cθ3*cθ2, -cθ1 * sθ2,
		sθ3 * sθ2, cθ3 * sθ2, cθ2})
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) (o []float64) {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(len(v), v))
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}
