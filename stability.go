package eclipse

import (
	"context"
	"math"
	"math/cmplx"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RK4ImaginaryBound is the extent of the RK4 stability region on the imaginary axis.
var RK4ImaginaryBound = 2 * math.Sqrt2

// ErrEigen is returned when the eigenvalue decomposition fails.
var ErrEigen = errors.New("eigenvalue decomposition failed")

// gravityGradient returns the 3x3 derivative of the acceleration of a body at ri due to a body
// of gravitational parameter gm at rj, with respect to rj.
func gravityGradient(ri, rj []float64, gm float64) *mat.Dense {
	r := sub(rj, ri)
	d := norm(r)
	A := mat.NewDense(3, 3, nil)
	if d < 1e-30 {
		return A
	}
	d3, d5 := d*d*d, d*d*d*d*d
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := -3 * r[i] * r[j] / d5
			if i == j {
				v += 1 / d3
			}
			A.Set(i, j, gm*v)
		}
	}
	return A
}

// Jacobian returns the 6N x 6N Jacobian of the equations of motion of the primaries, in the
// state layout of the Simulation. Auxiliary bodies only contribute to the diagonal blocks.
func Jacobian(sys *System, g float64) *mat.Dense {
	n := len(sys.primaries)
	J := mat.NewDense(6*n, 6*n, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			J.Set(6*i+k, 6*i+3+k, 1)
		}
	}
	for i, bi := range sys.primaries {
		diag := J.Slice(6*i+3, 6*i+6, 6*i, 6*i+3).(*mat.Dense)
		for j, bj := range sys.primaries {
			if i == j {
				continue
			}
			A := gravityGradient(bi.R, bj.R, g*bj.Mass)
			J.Slice(6*i+3, 6*i+6, 6*j, 6*j+3).(*mat.Dense).Copy(A)
			diag.Sub(diag, A)
		}
		for _, a := range sys.aux {
			diag.Sub(diag, gravityGradient(bi.R, a.R, g*a.Mass))
		}
	}
	return J
}

// MaxEigenModulus returns the largest eigenvalue modulus of a square matrix.
func MaxEigenModulus(m mat.Matrix) (float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return math.NaN(), ErrEigen
	}
	λmax := 0.
	for _, λ := range eig.Values(nil) {
		λmax = math.Max(λmax, cmplx.Abs(λ))
	}
	return λmax, nil
}

// Stability is the linear stability estimate of an RK4 step at one instant.
type Stability struct {
	DT       time.Time
	MaxEigen float64 // Largest eigenvalue modulus of the Jacobian, per time unit.
	Ratio    float64 // Step size times MaxEigen.
}

// Stable returns whether the step lies within the RK4 stability region.
func (s Stability) Stable() bool {
	return s.Ratio <= RK4ImaginaryBound
}

// StableStep returns the stability estimate of the current state of the simulation.
func (s *Simulation) StableStep() (Stability, error) {
	s.System.placeAuxiliaries(s.Elapsed())
	λ, err := MaxEigenModulus(Jacobian(s.System, s.Constants.G))
	if err != nil {
		return Stability{}, err
	}
	st := Stability{DT: s.CurrentDT(), MaxEigen: λ, Ratio: λ * s.StepSize}
	if s.metrics != nil {
		s.metrics.StabilityBound.Set(st.Ratio)
	}
	return st, nil
}

// ScanStability estimates the stability every `stride` steps, for `samples` samples, advancing
// the simulation in between.
func ScanStability(ctx context.Context, sim *Simulation, samples, stride int) ([]Stability, error) {
	scan := make([]Stability, 0, samples)
	for i := 0; i < samples; i++ {
		st, err := sim.StableStep()
		if err != nil {
			return scan, err
		}
		scan = append(scan, st)
		for k := 0; k < stride && i < samples-1; k++ {
			if err := ctx.Err(); err != nil {
				return scan, err
			}
			if err := sim.Step(); err != nil {
				return scan, err
			}
		}
	}
	return scan, nil
}
